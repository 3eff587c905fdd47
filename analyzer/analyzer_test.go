package analyzer_test

import (
	"testing"

	"github.com/rami3l/staticassert/analyzer"
	"github.com/stretchr/testify/assert"
	"golang.org/x/tools/go/analysis/analysistest"
)

func TestAnalyzer(t *testing.T) {
	analysistest.Run(t, analysistest.TestData(), analyzer.Analyzer, "a", "b")
}

func TestFactString(t *testing.T) {
	t.Parallel()
	f := &analyzer.Fact{Requirements: []analyzer.RequirementFact{
		{Src: "(N: int) N > 0"},
		{Src: "(T) sizeof(T) == 4"},
	}}
	assert.Equal(t, "requires (N: int) N > 0; (T) sizeof(T) == 4", f.String())
}
