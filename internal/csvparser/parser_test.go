package csvparser

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/bank-download-aggregator/internal/config"
)

func defaultSettings() config.CSVSettings {
	return config.Default().CSVSettings
}

func TestParse_SimpleHeader(t *testing.T) {
	data, err := Parse([]byte("Date,Amount\n01/02/2023,10.50\n01/03/2023,-4\n"), defaultSettings())
	require.NoError(t, err)

	assert.Equal(t, 1, data.HeaderRow)
	assert.False(t, data.UsedFallback())
	assert.Equal(t, []string{"Date", "Amount"}, data.Headers)
	assert.Equal(t, 2, data.RowCount)
	assert.Equal(t, [][]string{
		{"Date", "Amount"},
		{"01/02/2023", "10.50"},
		{"01/03/2023", "-4"},
	}, data.Frame.Records())
}

func TestParse_HeaderOnLineThree(t *testing.T) {
	content := "Account Name: Chase Checking\n" +
		"Account Number: XXXX1111\n" +
		"Posting Date,Description,Amount\n" +
		"01/02/2023,COFFEE,-3.50\n" +
		"01/03/2023,PAYROLL,1200.00\n"

	data, err := Parse([]byte(content), defaultSettings())
	require.NoError(t, err)

	assert.Equal(t, 3, data.HeaderRow)
	assert.True(t, data.UsedFallback())
	assert.Equal(t, []string{"Posting Date", "Description", "Amount"}, data.Frame.Names())
	assert.Equal(t, 2, data.Frame.Nrow())
	assert.Equal(t, []string{"COFFEE", "PAYROLL"}, data.Frame.Col("Description").Records())
}

func TestParse_FallbackCountsRecordsNotLines(t *testing.T) {
	content := "\"Account Name: Chase\nChecking\"\n" +
		"Account Number: XXXX1111\n" +
		"Date,Amount\n" +
		"01/02/2023,5\n" +
		"01/03/2023,6,7\n"

	_, err := Parse([]byte(content), defaultSettings())
	require.Error(t, err)
	// The quoted metadata cell spans two physical lines but is one record,
	// so "Date,Amount" is still the header and line numbers stay physical.
	assert.Contains(t, err.Error(), "header row 3: expected 2 fields in line 6")

	data, err := Parse([]byte(content[:len(content)-len("01/03/2023,6,7\n")]), defaultSettings())
	require.NoError(t, err)
	assert.Equal(t, 3, data.HeaderRow)
	assert.Equal(t, []string{"Date", "Amount"}, data.Headers)
	assert.Equal(t, [][]string{{"Date", "Amount"}, {"01/02/2023", "5"}}, data.Frame.Records())
}

func TestParse_FallbackSkipsBlankLines(t *testing.T) {
	content := "Statement for XXXX1111\n\nPeriod: January\nDate,Amount\n01/02/2023,5\n"

	data, err := Parse([]byte(content), defaultSettings())
	require.NoError(t, err)
	assert.Equal(t, 3, data.HeaderRow)
	assert.Equal(t, []string{"Date", "Amount"}, data.Headers)
}

func TestParse_CustomFallbackRow(t *testing.T) {
	settings := defaultSettings()
	settings.FallbackHeaderRow = 2

	data, err := Parse([]byte("Statement\nA,B\n1,2\n"), settings)
	require.NoError(t, err)
	assert.Equal(t, 2, data.HeaderRow)
	assert.Equal(t, []string{"A", "B"}, data.Headers)
}

func TestParse_BothAttemptsFail(t *testing.T) {
	content := "x\ny\nA,B\n1,2,3\n"

	_, err := Parse([]byte(content), defaultSettings())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnparseable)
	assert.True(t, IsSkippable(err))
	assert.Contains(t, err.Error(), "line 4")
}

func TestParse_Empty(t *testing.T) {
	for name, content := range map[string]string{
		"zero bytes":  "",
		"whitespace":  "\n  \n",
		"header only": "Date,Amount\n",
		"blank rows":  "Date,Amount\n,\n , \n",
		"bom only":    "\xef\xbb\xbf",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(content), defaultSettings())
			assert.ErrorIs(t, err, ErrEmpty)
			assert.True(t, IsSkippable(err))
		})
	}
}

func TestParse_ShortRowsPadded(t *testing.T) {
	data, err := Parse([]byte("A,B,C\n1,2\n4,5,6\n"), defaultSettings())
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"A", "B", "C"},
		{"1", "2", ""},
		{"4", "5", "6"},
	}, data.Frame.Records())
}

func TestParse_TrailingDelimiters(t *testing.T) {
	data, err := Parse([]byte("A,B\n1,2,\n3,4,,\n"), defaultSettings())
	require.NoError(t, err)
	assert.Equal(t, 1, data.HeaderRow)
	assert.Equal(t, [][]string{{"A", "B"}, {"1", "2"}, {"3", "4"}}, data.Frame.Records())
}

func TestParse_HeaderCleanup(t *testing.T) {
	data, err := Parse([]byte(" Date ,,Amount,Amount,Amount\n1,2,3,4,5\n"), defaultSettings())
	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "Column_2", "Amount", "Amount.1", "Amount.2"}, data.Headers)
}

func TestParse_BOMAndQuotes(t *testing.T) {
	content := "\xef\xbb\xbfDate,Memo\n01/02/2023,\"Lunch, with \"\"team\"\"\"\n"

	data, err := Parse([]byte(content), defaultSettings())
	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "Memo"}, data.Headers)
	assert.Equal(t, []string{`Lunch, with "team"`}, data.Frame.Col("Memo").Records())
}

func TestParse_Windows1252(t *testing.T) {
	settings := defaultSettings()
	settings.Encoding = "Windows-1252"

	// 0xE9 is e-acute in Windows-1252.
	data, err := Parse([]byte("Payee\nCaf\xe9\n"), settings)
	require.NoError(t, err)
	assert.Equal(t, []string{"Café"}, data.Frame.Col("Payee").Records())
}

func TestParse_Delimiters(t *testing.T) {
	settings := defaultSettings()
	settings.Delimiter = "tab"

	data, err := Parse([]byte("A\tB\n1\t2\n"), settings)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, data.Headers)

	settings.Delimiter = "semicolon"
	data, err = Parse([]byte("A;B\n1,5;2\n"), settings)
	require.NoError(t, err)
	assert.Equal(t, []string{"1,5"}, data.Frame.Col("A").Records())
}

func TestParse_UnsupportedEncoding(t *testing.T) {
	settings := defaultSettings()
	settings.Encoding = "EBCDIC"

	_, err := Parse([]byte("A\n1\n"), settings)
	require.Error(t, err)
	assert.False(t, IsSkippable(err))
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ChaseAccount1111.csv")
	require.NoError(t, os.WriteFile(path, []byte("Date,Amount\n1,2\n"), 0o644))

	data, err := ParseFile(path, defaultSettings())
	require.NoError(t, err)
	assert.Equal(t, path, data.SourceFile)

	_, err = ParseFile(filepath.Join(dir, "missing.csv"), defaultSettings())
	require.Error(t, err)
	assert.False(t, IsSkippable(err))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLookupEncoding(t *testing.T) {
	for _, name := range []string{"", "utf-8", "UTF_8", "cp1252", "latin1", "ISO-8859-1", "utf-16", "UTF-16BE"} {
		_, err := LookupEncoding(name)
		assert.NoError(t, err, name)
	}
	_, err := LookupEncoding("klingon")
	assert.Error(t, err)
}
