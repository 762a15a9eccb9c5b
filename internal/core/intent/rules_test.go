package intent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/lexgraph/internal/core/model"
)

func TestClassify_GraphRelationship(t *testing.T) {
	tests := []struct {
		question  string
		entity    string
		relations []model.EdgeKind
	}{
		{"What regulations reference the Employment Insurance Act?", "Employment Insurance Act", []model.EdgeKind{model.EdgeCites}},
		{"What laws reference the Imaginary Act of 2099?", "Imaginary Act of 2099", []model.EdgeKind{model.EdgeCites}},
		{"Which acts amend the employment insurance act", "employment insurance act", []model.EdgeKind{model.EdgeAmends}},
		{"List regulations made under the Canada Labour Code.", "Canada Labour Code", []model.EdgeKind{model.EdgeImplements}},
		{"Which regulations cite SOR/96-332?", "SOR/96-332", []model.EdgeKind{model.EdgeCites}},
		{"What instruments reference or implement the Employment Insurance Act?", "Employment Insurance Act", []model.EdgeKind{model.EdgeCites, model.EdgeImplements}},
		{"Which acts have amended the Employment Insurance Act since 2020?", "Employment Insurance Act", []model.EdgeKind{model.EdgeAmends}},
		{"What regulations amend the Budget Implementation Act, 2023, No. 1?", "Budget Implementation Act, 2023, No. 1", []model.EdgeKind{model.EdgeAmends}},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			got := Classify(tt.question)
			assert.Equal(t, model.IntentGraphRelationship, got.Category)
			assert.Equal(t, tt.entity, got.PrimaryEntity())
			assert.Equal(t, tt.relations, got.Relations)
			assert.GreaterOrEqual(t, got.Confidence, MinConfidence)
			assert.False(t, got.Transitive)
		})
	}
}

func TestClassify_Transitive(t *testing.T) {
	got := Classify("Which regulations directly or indirectly reference the Employment Insurance Act?")
	assert.Equal(t, model.IntentGraphRelationship, got.Category)
	assert.True(t, got.Transitive)
	assert.Equal(t, "Employment Insurance Act", got.PrimaryEntity())
}

func TestClassify_OtherCategories(t *testing.T) {
	tests := []struct {
		question string
		want     model.IntentCategory
	}{
		{"How was the Employment Insurance Act amended?", model.IntentAmendment},
		{"When was the Canada Labour Code last amended?", model.IntentAmendment},
		{`What does "insurable employment" mean?`, model.IntentDefinition},
		{"Define benefit period.", model.IntentDefinition},
		{"What is the difference between regular benefits and sickness benefits?", model.IntentComparison},
		{"Compare the Canada Labour Code with the Employment Insurance Act", model.IntentComparison},
		{"How do I apply for employment insurance benefits?", model.IntentProcedural},
		{"What is the maximum number of weeks of benefits?", model.IntentFactual},
		{"Is a fisher eligible for benefits?", model.IntentFactual},
		{"employment insurance", model.IntentUnknown},
		{"", model.IntentUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.question).Category)
		})
	}
}

func TestClassify_AmendmentCarriesRelation(t *testing.T) {
	got := Classify("How was the Employment Insurance Act amended in 2023?")
	assert.Equal(t, model.IntentAmendment, got.Category)
	assert.Equal(t, []model.EdgeKind{model.EdgeAmends}, got.Relations)
	assert.Equal(t, []string{"Employment Insurance Act"}, got.Entities)
}

func TestClassify_CueInsideEntityNameIsIgnored(t *testing.T) {
	got := Classify("What does the Budget Implementation Act say about premiums?")
	assert.NotEqual(t, model.IntentGraphRelationship, got.Category)
	assert.Equal(t, []string{"Budget Implementation Act"}, got.Entities)
}

func TestClassify_Deterministic(t *testing.T) {
	q := "What regulations reference the Employment Insurance Act?"
	assert.Equal(t, Classify(q), Classify(q))
}

func TestClassify_MalformedInputNeverPanics(t *testing.T) {
	inputs := []string{
		"\x00\x01", "   ", "reference", "amended?", "“unterminated", "ss. ()",
		"ȺȺȺȺȺȺȺȺȺȺȺȺ cite",
		"İİİİ ȺȺ amends the Ⱥ Act",
		"Which acts reference \xff\xfe Ⱥ?",
	}
	for _, q := range inputs {
		assert.NotPanics(t, func() {
			got := Classify(q)
			assert.NotNil(t, got.Entities, q)
		}, q)
	}
}

func TestClassify_WidthChangingCaseKeepsOffsets(t *testing.T) {
	got := Classify("Which acts reference the İİİİ Act?")
	assert.Equal(t, model.IntentGraphRelationship, got.Category)
	require.NotEmpty(t, got.Entities)
	assert.Equal(t, "İİİİ Act", got.Entities[0])

	got = Classify("What regulations cite the ȺȺȺ Code?")
	require.NotEmpty(t, got.Entities)
	assert.Equal(t, "ȺȺȺ Code", got.Entities[0])
}

func TestFoldCase(t *testing.T) {
	for _, s := range []string{"Which ACTS", "İİ Ⱥ K", "bad \xff byte"} {
		folded := foldCase(s)
		assert.Len(t, folded, len(s), s)
	}
	assert.Equal(t, "which acts", foldCase("Which ACTS"))
}

func TestRuleClassifier(t *testing.T) {
	var c Classifier = NewRuleClassifier()
	got := c.Classify(context.Background(), "Which regulations cite the Canada Labour Code?")
	assert.Equal(t, model.IntentGraphRelationship, got.Category)
}

func TestExtractEntities(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"Does section 7(1) of the Employment Insurance Act apply?", []string{"section 7(1)", "Employment Insurance Act"}},
		{"Compare the Canada Labour Code and the Employment Insurance Act", []string{"Canada Labour Code", "Employment Insurance Act"}},
		{"What Regulations exist?", []string{}},
		{`Meaning of "insurable earnings" under SOR/97-33`, []string{"insurable earnings", "SOR/97-33"}},
		{"Insurable Earnings and Collection of Premiums Regulations", []string{"Insurable Earnings and Collection of Premiums Regulations"}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, extractEntities(tt.text))
		})
	}
}

func TestCleanMention(t *testing.T) {
	assert.Equal(t, "Employment Insurance Act", cleanMention(" the Employment Insurance Act?"))
	assert.Equal(t, "Employment Insurance Act", cleanMention(" the Employment Insurance Act in 2023?"))
	assert.Equal(t, "Imaginary Act of 2099", cleanMention(" the Imaginary Act of 2099?"))
	assert.Equal(t, "", cleanMention(" in 2023?"))
	assert.Equal(t, "", cleanMention(" by the Budget Act"))
	assert.Equal(t, "", cleanMention("?"))
}
