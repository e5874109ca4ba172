package classify

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/ledger-triage/internal/domain/extract"
)

func receipt(vendor string, extra map[string]extract.Field) extract.Fields {
	return extract.Fields{
		Kind:   extract.KindReceipt,
		Date:   extract.Field{Value: "2024-01-05", Confidence: 0.95},
		Amount: extract.Field{Value: "45.00", Confidence: 0.95},
		Vendor: extract.Field{Value: vendor, Confidence: 0.85},
		Extra:  extra,
	}
}

func newTestClassifier(t *testing.T, rules ...VendorRule) *Classifier {
	t.Helper()
	c, err := New(Config{Vendors: rules})
	require.NoError(t, err)
	return c
}

func TestClassifier_Cascade(t *testing.T) {
	c := newTestClassifier(t,
		VendorRule{Match: "Staples", Category: "Office Supplies", Hints: map[string]string{"payment_method": "Card"}},
		VendorRule{Match: "Amazon Web Services LLC", Category: "COGS"},
		VendorRule{MatchRegex: "^uber( eats)?", Category: "Transportation"},
		VendorRule{Match: "shell", Category: "COGS"},
	)

	tests := []struct {
		name     string
		fields   extract.Fields
		override string
		want     Result
	}{
		{
			name:     "override wins over everything",
			fields:   receipt("Staples Store 1142", nil),
			override: "Marketing",
			want:     Result{Category: "Marketing", Confidence: 1.0, Hints: map[string]string{}, Source: SourceOverride},
		},
		{
			name:   "literal vendor contained in text",
			fields: receipt("STAPLES STORE 1142", nil),
			want: Result{Category: "Office Supplies", Confidence: 0.95,
				Hints: map[string]string{"payment_method": "Card"}, Source: SourceVendorMap},
		},
		{
			name:   "text contained in literal vendor",
			fields: receipt("Amazon Web Services", nil),
			want:   Result{Category: "COGS", Confidence: 0.95, Hints: map[string]string{}, Source: SourceVendorMap},
		},
		{
			name:   "regex vendor ignores case",
			fields: receipt("Uber Eats 8812", nil),
			want:   Result{Category: "Transportation", Confidence: 0.95, Hints: map[string]string{}, Source: SourceVendorMap},
		},
		{
			name:   "vendor map beats keywords",
			fields: receipt("Shell Fuel Station", nil),
			want:   Result{Category: "COGS", Confidence: 0.95, Hints: map[string]string{}, Source: SourceVendorMap},
		},
		{
			name:   "unknown vendor is unclassified",
			fields: receipt("Zzyx Qqq", nil),
			want:   Result{Category: Unclassified, Confidence: 0, Hints: map[string]string{}, Source: SourceUnclassified},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.fields, tt.override)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifier_FirstVendorRuleWins(t *testing.T) {
	c := newTestClassifier(t,
		VendorRule{Match: "depot", Category: "COGS"},
		VendorRule{Match: "office depot", Category: "Office Supplies"},
	)

	got := c.Classify(receipt("Office Depot", nil), "")
	assert.Equal(t, "COGS", got.Category)
}

func TestClassifier_EmptyVendorSkipsVendorMap(t *testing.T) {
	c := newTestClassifier(t, VendorRule{Match: "staples", Category: "Office Supplies"})

	got := c.Classify(receipt("", nil), "")
	assert.Equal(t, Unclassified, got.Category)
}

func TestClassifier_Keywords(t *testing.T) {
	c := newTestClassifier(t)

	t.Run("single hit", func(t *testing.T) {
		got := c.Classify(receipt("Shell Fuel Station", nil), "")
		assert.Equal(t, "Transportation", got.Category)
		assert.Equal(t, 0.70, got.Confidence)
		assert.Equal(t, SourceKeywords, got.Source)
	})

	t.Run("hits from other fields count", func(t *testing.T) {
		fields := receipt("Staples Office Depot", map[string]extract.Field{
			extract.FieldMemo: {Value: "paper pencil binder", Confidence: 0.85},
		})
		got := c.Classify(fields, "")
		assert.Equal(t, "Office Supplies", got.Category)
		assert.Equal(t, 0.85, got.Confidence, "confidence is capped")
	})

	t.Run("ties go to the alphabetically first category", func(t *testing.T) {
		got := c.Classify(receipt("Fuel Legal", nil), "")
		assert.Equal(t, "Professional Services", got.Category)
		assert.Equal(t, 0.70, got.Confidence)
	})

	t.Run("deterministic across calls", func(t *testing.T) {
		fields := receipt("Fuel Legal", nil)
		first := c.Classify(fields, "")
		for i := 0; i < 50; i++ {
			assert.Equal(t, first, c.Classify(fields, ""))
		}
	})
}

func TestClassifier_HintsAreCopied(t *testing.T) {
	c := newTestClassifier(t, VendorRule{Match: "staples", Category: "Office Supplies", Hints: map[string]string{"payment_method": "Card"}})

	first := c.Classify(receipt("Staples", nil), "")
	first.Hints["payment_method"] = "Cash"

	second := c.Classify(receipt("Staples", nil), "")
	assert.Equal(t, "Card", second.Hints["payment_method"])
}

func TestClassifier_Concurrent(t *testing.T) {
	c := newTestClassifier(t, VendorRule{Match: "staples", Category: "Office Supplies"})
	vendors := []string{"Staples", "Shell Fuel Station", "Zzyx Qqq", "Fuel Legal"}

	want := make([]Result, len(vendors))
	for i, v := range vendors {
		want[i] = c.Classify(receipt(v, nil), "")
	}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i, v := range vendors {
				assert.Equal(t, want[i], c.Classify(receipt(v, nil), ""))
			}
		}()
	}
	wg.Wait()
}

func TestNew_InvalidRegex(t *testing.T) {
	_, err := New(Config{Vendors: []VendorRule{{MatchRegex: "(", Category: "COGS"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid regex")
}

func TestKeywordMatcher_GroupsSharedPatterns(t *testing.T) {
	km := newKeywordMatcher(map[string][]string{
		"A": {"foo", "bar"},
		"B": {"FOO", ""},
	})
	require.Len(t, km.patterns, 2)

	counts := km.hits("Foo bar foo")
	assert.Equal(t, map[string]int{"A": 2, "B": 1}, counts)

	assert.Nil(t, km.hits("nothing here"))
	assert.Nil(t, newKeywordMatcher(nil).hits("foo"))
}
