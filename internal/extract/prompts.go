package extract

import (
	"strings"

	"idverify/internal/models"
)

// Expected field sets per document role. Name and dob are the
// mandatory-to-attempt identity fields; the rest are document-specific
// and land in IdentityRecord.DocumentFields.
var (
	personalFields    = []string{"name", "dob", "address", "mobile"}
	educationalFields = []string{
		"name", "dob", "document_type", "qualification", "board", "stream",
		"year_of_passing", "school_name", "marks_type", "marks",
	}
)

func expectedFields(role models.DocumentRole) []string {
	if role == models.RolePersonal {
		return personalFields
	}
	return educationalFields
}

const personalPrompt = `You are an expert data extraction assistant specializing in Indian identity documents (Aadhaar, PAN Card, Voter ID, etc.).

Extract the following information from this personal identity document OCR text:

Required fields:
- name: Full name of the person (as printed on document)
- dob: Date of birth in DD-MM-YYYY format (extract and convert if needed)
- address: Complete address as printed on document
- mobile: Mobile number (if present on document, otherwise null)

Important instructions:
1. Extract the EXACT name as printed on the document
2. Convert date of birth to DD-MM-YYYY format (e.g., "01-12-1987")
3. If any field is not found or unclear, set it to null
4. Return ONLY a JSON object with these exact field names
5. Do not include any explanations or markdown

OCR Text:
"""
[OCR_TEXT]
"""

Return ONLY the JSON object:`

const educationalPrompt = `You are an expert data extraction assistant specializing in Indian educational documents (marksheets, certificates, degrees).

CRITICAL: You MUST extract the student's name and date of birth. These are non-negotiable fields used for identity verification. Even if you have to search the entire document, find these fields.

Extract the following information from this educational document (marksheet/certificate) OCR text:

CRITICAL FIELDS (MUST EXTRACT - DO NOT LEAVE AS NULL):
1. name: Student's full name EXACTLY as printed on document. Search all sections including the name field at top, the roll number row, the candidate information section and header information. Set to null ONLY if genuinely not present.
2. dob: Date of birth in DD-MM-YYYY format. Search for DOB, Date of Birth, D.O.B or D/O/B and any birth date field. Set to null ONLY if genuinely not present.

OTHER FIELDS:
- document_type: Always "marksheet" for educational documents
- qualification: Class/Standard (normalize to "Class 10" or "Class 12")
- board: Board/Council name (e.g., "CBSE", "ICSE", "State Board", "UP Board")
- stream: Stream if Class 12 (e.g., "Science", "Commerce", "Arts"), null for Class 10
- year_of_passing: Year of passing in YYYY format (e.g., "2017")
- school_name: School/College name
- marks_type: Either "CGPA" or "Percentage"
- marks: The marks value with unit (e.g., "7.4 CGPA" or "85%")

EXTRACTION RULES:
1. For name: copy EXACTLY as printed, preserve capitalization. If multiple name fields are found, use the one most associated with the student (not examiner/teacher names)
2. For dob: normalize to DD-MM-YYYY format. If you see "12/01/1987" convert to "12-01-1987"
3. All other fields: set to null if not found
4. Return ONLY valid JSON with these exact field names, no markdown, no explanations

OCR Text from Document:
"""
[OCR_TEXT]
"""

Return ONLY the JSON object:`

// buildPrompt inserts the full raw OCR text, never truncated or
// pre-filtered, into the role-specific instruction set.
func buildPrompt(role models.DocumentRole, rawText string) string {
	tmpl := educationalPrompt
	if role == models.RolePersonal {
		tmpl = personalPrompt
	}
	return strings.Replace(tmpl, "[OCR_TEXT]", rawText, 1)
}
