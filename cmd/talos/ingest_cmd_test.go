// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ingestFixture = `##fileformat=VCFv4.2
##contig=<ID=chr1,length=248956422>
##contig=<ID=chrX,length=156040895>
##INFO=<ID=AC,Number=A,Type=Integer,Description="Allele count">
##INFO=<ID=AN,Number=1,Type=Integer,Description="Allele number">
##FORMAT=<ID=GT,Number=1,Type=String,Description="Genotype">
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	SAM1	SAM2
chr1	12345	.	A	G	50	PASS	AC=1;AN=4	GT	0/1	0/0
chr1	13000	.	G	A,T	99	PASS	AC=1,1;AN=4	GT	1/2	0/0
chrX	5000	.	T	C	70	PASS	AC=1;AN=4;categoryboolean1=1;categorysample4=SAM1;categorysupport=1	GT	1/1	0/0
`

func writeIngestFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "callset.vcf")
	require.NoError(t, os.WriteFile(path, []byte(ingestFixture), 0o600))
	return path
}

func readSummary(t *testing.T, path string) ingestSummary {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var s ingestSummary
	require.NoError(t, json.Unmarshal(data, &s))
	return s
}

func TestIngestWritesSummary(t *testing.T) {
	in := writeIngestFixture(t)
	out := filepath.Join(t.TempDir(), "summary.json")

	_, err := execute(t, "ingest", "--input_path", in, "--output", out, "--sv=false")
	require.NoError(t, err)

	s := readSummary(t, out)
	assert.Equal(t, []string{"SAM1", "SAM2"}, s.Samples)
	assert.Equal(t, 2, s.Rows)
	assert.Equal(t, 1, s.Skipped, "the multi-allelic row skips")
	assert.Equal(t, 1, s.Classified)
	assert.Equal(t, map[string]int{"chr1": 1, "chrX": 1}, s.Contigs)
	assert.Equal(t, map[string]int{"1": 1, "4": 1, "support": 1}, s.Categories)
}

func TestIngestSVSummary(t *testing.T) {
	in := writeIngestFixture(t)
	out := filepath.Join(t.TempDir(), "summary.json")

	_, err := execute(t, "ingest", "--input_path", in, "--output", out, "--sv")
	require.NoError(t, err)

	s := readSummary(t, out)
	assert.Equal(t, 2, s.Rows)
	assert.Equal(t, 1, s.Classified)
}

func TestIngestMissingInput(t *testing.T) {
	_, err := execute(t, "ingest", "--input_path", filepath.Join(t.TempDir(), "absent.vcf"))
	require.Error(t, err)
}
