// SPDX-License-Identifier: MIT

package clinvar

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func submissionRow(varID, sig, date, review, submitter string) string {
	fields := []string{
		varID, sig, date, "-", "na", "na", review,
		"clinical testing", "germline:na", submitter, "SCV000000001.1", "-", "-",
	}
	return strings.Join(fields, "\t")
}

func variantRow(alleleID, variationID, assembly, chrom, pos, ref, alt string) string {
	fields := make([]string, varColumns)
	for i := range fields {
		fields[i] = "-"
	}
	fields[varColAllele] = alleleID
	fields[varColAssembly] = assembly
	fields[varColChrom] = chrom
	fields[varColVariation] = variationID
	fields[varColPos] = pos
	fields[varColRef] = ref
	fields[varColAlt] = alt
	return strings.Join(fields, "\t")
}

func TestParseSubmissionSummary(t *testing.T) {
	raw := strings.Join([]string{
		"#A header comment",
		"#VariationID\tClinicalSignificance\tDateLastEvaluated\t...",
		submissionRow("2", "Pathogenic", "Jun 29, 2016", "criteria provided, single submitter", "OMIM"),
		submissionRow("2", "Likely pathogenic", "Sep 5, 2016", "criteria provided, single submitter", "GeneDx"),
		submissionRow("3", "Benign", "-", "no assertion criteria provided", "OMIM"),
		submissionRow("7", "Uncertain significance", "Feb 02, 2020", "reviewed by expert panel", "ClinGen"),
		"bogus\trow",
	}, "\n")

	byVariation, err := ParseSubmissionSummary(strings.NewReader(raw))
	require.NoError(t, err)
	require.Len(t, byVariation, 3)

	require.Len(t, byVariation[2], 2)
	first := byVariation[2][0]
	assert.Equal(t, Pathogenic, first.Classification)
	assert.Equal(t, "OMIM", first.Submitter)
	assert.Equal(t, time.Date(2016, time.June, 29, 0, 0, 0, 0, time.UTC), first.Date)
	assert.Equal(t, Pathogenic, byVariation[2][1].Classification)
	assert.Equal(t, time.Date(2016, time.September, 5, 0, 0, 0, 0, time.UTC), byVariation[2][1].Date)

	require.Len(t, byVariation[3], 1)
	assert.True(t, byVariation[3][0].Date.IsZero(), "undated submission")

	require.Len(t, byVariation[7], 1)
	assert.Equal(t, ReviewExpertPanel, byVariation[7][0].ReviewStatus)
}

func TestParseVariantSummary(t *testing.T) {
	raw := strings.Join([]string{
		"#AlleleID\tType\tName\t...",
		variantRow("15041", "2", "GRCh38", "7", "4820844", "G", "A"),
		variantRow("15041", "2", "GRCh37", "7", "4825256", "G", "A"),
		variantRow("99999", "2", "grch38", "7", "4820992", "C", "T"),
		variantRow("15042", "3", "GRCh38", "7", "4827361", "na", "na"),
		variantRow("18397", "7", "GRCh38", "X", "31119228", "T", "C"),
	}, "\n")

	byVariation, err := ParseVariantSummary(strings.NewReader(raw), "")
	require.NoError(t, err)
	require.Len(t, byVariation, 2)

	require.Len(t, byVariation[2], 2, "assembly match is case-insensitive")
	assert.Equal(t, Allele{ID: 15041, Chrom: "7", Pos: 4820844, Ref: "G", Alt: "A"}, byVariation[2][0])
	assert.Equal(t, int64(99999), byVariation[2][1].ID)

	require.Len(t, byVariation[7], 1)
	assert.Equal(t, "X", byVariation[7][0].Chrom)

	assert.NotContains(t, byVariation, int64(3), "rows without VCF coordinates dropped")
}

func TestBuildDecisions(t *testing.T) {
	submissions := map[int64][]Submission{
		2: {
			{Date: time.Date(2016, 6, 29, 0, 0, 0, 0, time.UTC), Classification: Pathogenic, ReviewStatus: "criteria provided, single submitter"},
			{Date: time.Date(2016, 9, 5, 0, 0, 0, 0, time.UTC), Classification: Pathogenic, ReviewStatus: "criteria provided, single submitter"},
		},
		3: {
			{Date: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), Classification: Benign, ReviewStatus: "no assertion criteria provided"},
		},
	}
	alleles := map[int64][]Allele{
		2: {{ID: 99999, Chrom: "7", Pos: 4820992, Ref: "C", Alt: "T"}, {ID: 15041, Chrom: "7", Pos: 4820844, Ref: "G", Alt: "A"}},
		// variation 3 has no allele on this assembly
	}

	decisions := BuildDecisions(submissions, alleles)
	require.Len(t, decisions, 2)
	assert.Equal(t, int64(15041), decisions[0].Allele.ID, "sorted by allele id")
	assert.Equal(t, int64(99999), decisions[1].Allele.ID)
	for _, d := range decisions {
		assert.Equal(t, Pathogenic, d.Classification)
		assert.Equal(t, 1, d.Stars)
		assert.Equal(t, 2, d.Submissions)
	}
}

func TestLoadSubmissionSummaryGzip(t *testing.T) {
	raw := submissionRow("2", "Pathogenic", "Jun 29, 2016", "criteria provided, single submitter", "OMIM")

	path := filepath.Join(t.TempDir(), "submission_summary.txt.gz")
	fh, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(fh)
	_, err = gz.Write([]byte(raw + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, fh.Close())

	byVariation, err := LoadSubmissionSummary(path)
	require.NoError(t, err)
	require.Len(t, byVariation, 1)
	assert.Equal(t, Pathogenic, byVariation[2][0].Classification)
}
