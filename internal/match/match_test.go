package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idverify/internal/models"
)

func personal(name, dob string) models.IdentityRecord {
	return models.IdentityRecord{
		SourceDocumentID: "personal-1",
		Role:             models.RolePersonal,
		Name:             name,
		DateOfBirth:      dob,
	}
}

func educational(name, dob string) models.IdentityRecord {
	return models.IdentityRecord{
		SourceDocumentID: "edu-1",
		Role:             models.RoleEducational,
		Name:             name,
		DateOfBirth:      dob,
	}
}

func TestCompareIdenticalRecordsVerified(t *testing.T) {
	v := New().Compare(personal("BABU KHAN", "01-12-1987"), educational("BABU KHAN", "01-12-1987"))

	assert.Equal(t, models.OutcomeVerified, v.Overall)
	assert.True(t, v.NameMatch)
	assert.True(t, v.DOBMatch)
	assert.InDelta(t, 1.0, v.NameSimilarity, 1e-9)
}

func TestCompareIsCaseAndOrderInsensitiveOnNames(t *testing.T) {
	v := New().Compare(personal("Babu Khan", "01-12-1987"), educational("KHAN, BABU", "01-12-1987"))

	assert.Equal(t, models.OutcomeVerified, v.Overall)
	assert.True(t, v.NameMatch)
}

func TestCompareDOBDiffersFailsRegardlessOfName(t *testing.T) {
	v := New().Compare(personal("BABU KHAN", "15-05-1995"), educational("BABU KHAN", "20-06-2000"))

	assert.Equal(t, models.OutcomeFailed, v.Overall)
	assert.True(t, v.NameMatch)
	assert.False(t, v.DOBMatch)
}

func TestCompareBothFieldsDifferFailsWithBothValues(t *testing.T) {
	v := New().Compare(personal("BABU KHAN", "15-05-1995"), educational("DIFFERENT NAME", "20-06-2000"))

	assert.Equal(t, models.OutcomeFailed, v.Overall)
	require.Len(t, v.Details, 2)
	for _, d := range v.Details {
		assert.Equal(t, models.FieldMismatched, d.Status)
		assert.NotEmpty(t, d.PersonalValue)
		assert.NotEmpty(t, d.OtherValue)
	}
}

func TestCompareAbsentDOBIsIndeterminateNeverFailed(t *testing.T) {
	v := New().Compare(personal("BABU KHAN", ""), educational("BABU KHAN", "15-05-1995"))

	assert.Equal(t, models.OutcomeIndeterminate, v.Overall)

	var dob models.FieldComparison
	for _, d := range v.Details {
		if d.Field == "dob" {
			dob = d
		}
	}
	assert.Equal(t, models.FieldMissing, dob.Status)
}

func TestCompareDefiniteMismatchBeatsIndeterminate(t *testing.T) {
	// name mismatches while dob is absent: a definite mismatch on any
	// comparable field fails the pair, partial verification is not a pass
	v := New().Compare(personal("BABU KHAN", ""), educational("DIFFERENT NAME", "15-05-1995"))

	assert.Equal(t, models.OutcomeFailed, v.Overall)
}

func TestCompareBothSidesMissingEverythingIndeterminate(t *testing.T) {
	v := New().Compare(personal("", ""), educational("", ""))

	assert.Equal(t, models.OutcomeIndeterminate, v.Overall)
	require.Len(t, v.Details, 2)
	assert.Equal(t, models.FieldMissing, v.Details[0].Status)
	assert.Equal(t, models.FieldMissing, v.Details[1].Status)
}

func TestCompareDetailsAlwaysListEveryField(t *testing.T) {
	v := New().Compare(personal("BABU KHAN", "01-12-1987"), educational("BABU KHAN", "01-12-1987"))

	require.Len(t, v.Details, 2)
	assert.Equal(t, "name", v.Details[0].Field)
	assert.Equal(t, "dob", v.Details[1].Field)
}

func TestThresholdIsConfigurable(t *testing.T) {
	strict := NewWithThreshold(0.999)
	v := strict.Compare(personal("BABU KHAN", "01-12-1987"), educational("BABU KHANN", "01-12-1987"))
	assert.False(t, v.NameMatch)

	lax := NewWithThreshold(0.5)
	v = lax.Compare(personal("BABU KHAN", "01-12-1987"), educational("BABU KHANN", "01-12-1987"))
	assert.True(t, v.NameMatch)
}

func TestNameSimilarityTokenOrderInsensitive(t *testing.T) {
	assert.InDelta(t, 1.0, NameSimilarity("KHAN BABU", "BABU KHAN"), 1e-9)
	assert.Less(t, NameSimilarity("BABU KHAN", "SOMEONE ELSE"), 0.85)
}
