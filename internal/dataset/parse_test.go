package dataset

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"

	"github.com/csvchat/csvchat/internal/domain"
)

const salesCSV = `month,region,sales,active,date
Jan,west,100,true,2024-01-31
Feb,east,300,false,2024-02-29
Mar,west,200,true,2024-03-31
`

func TestParse(t *testing.T) {
	p := NewParser(1 << 20)

	ds, err := p.Parse([]byte(salesCSV), "")
	require.NoError(t, err)

	assert.Equal(t, 3, ds.NumRows())
	assert.Equal(t, 5, ds.NumCols())
	assert.Equal(t, []string{"month", "region", "sales", "active", "date"}, ds.ColumnNames())

	types := map[string]ColumnType{}
	for _, c := range ds.Columns() {
		types[c.Name] = c.Type
	}
	assert.Equal(t, TypeText, types["month"])
	assert.Equal(t, TypeText, types["region"])
	assert.Equal(t, TypeNumeric, types["sales"])
	assert.Equal(t, TypeBoolean, types["active"])
	assert.Equal(t, TypeTemporal, types["date"])
}

func TestParseWithBOM(t *testing.T) {
	p := NewParser(1 << 20)
	payload := append([]byte{0xEF, 0xBB, 0xBF}, []byte(salesCSV)...)

	ds, err := p.Parse(payload, "")
	require.NoError(t, err)
	assert.Equal(t, "month", ds.ColumnNames()[0])
}

func TestParseShiftJISFallback(t *testing.T) {
	p := NewParser(1 << 20)

	utf8CSV := "商品,売上\nりんご,100\nみかん,200\n"
	sjis, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte(utf8CSV))
	require.NoError(t, err)
	require.False(t, bytes.Equal(sjis, []byte(utf8CSV)))

	t.Run("Auto Fallback", func(t *testing.T) {
		ds, err := p.Parse(sjis, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"商品", "売上"}, ds.ColumnNames())
		assert.Equal(t, "りんご", ds.Cell(0, 0))
	})

	t.Run("Declared Encoding", func(t *testing.T) {
		ds, err := p.Parse(sjis, "shift-jis")
		require.NoError(t, err)
		assert.Equal(t, 2, ds.NumRows())
	})

	t.Run("Unsupported Encoding", func(t *testing.T) {
		_, err := p.Parse(sjis, "utf-16")
		assert.Equal(t, domain.CodeEncodingError, domain.CodeOf(err))
	})
}

func TestParsePayloadTooLarge(t *testing.T) {
	p := NewParser(16)

	_, err := p.Parse([]byte(salesCSV), "")
	assert.Equal(t, domain.CodePayloadTooLarge, domain.CodeOf(err))
}

func TestParseMalformed(t *testing.T) {
	p := NewParser(1 << 20)

	t.Run("Ragged Rows", func(t *testing.T) {
		_, err := p.Parse([]byte("a,b\n1,2,3\n"), "")
		assert.Equal(t, domain.CodeMalformedInput, domain.CodeOf(err))
	})

	t.Run("Empty Payload", func(t *testing.T) {
		_, err := p.Parse([]byte(""), "")
		assert.Equal(t, domain.CodeMalformedInput, domain.CodeOf(err))
	})

	t.Run("Blank Header Name", func(t *testing.T) {
		_, err := p.Parse([]byte("a,,c\n1,2,3\n"), "")
		assert.Equal(t, domain.CodeMalformedInput, domain.CodeOf(err))
	})
}

func TestParseHeaderOnly(t *testing.T) {
	p := NewParser(1 << 20)

	ds, err := p.Parse([]byte("a,b,c\n"), "")
	require.NoError(t, err)
	assert.Equal(t, 0, ds.NumRows())
	assert.Equal(t, 3, ds.NumCols())
	// With no values to sample, columns default to text.
	for _, c := range ds.Columns() {
		assert.Equal(t, TypeText, c.Type)
	}
}

func TestInferColumnTypeMixed(t *testing.T) {
	p := NewParser(1 << 20)

	ds, err := p.Parse([]byte("v\n10\nabc\n20\n"), "")
	require.NoError(t, err)
	col, err := ds.Column("v")
	require.NoError(t, err)
	assert.Equal(t, TypeText, col.Type)
}

func TestParseNumberThousandsSeparator(t *testing.T) {
	p := NewParser(1 << 20)

	ds, err := p.Parse([]byte("sales\n\"1,200\"\n800\n"), "")
	require.NoError(t, err)
	col, err := ds.Column("sales")
	require.NoError(t, err)
	assert.Equal(t, TypeNumeric, col.Type)

	sum, err := ds.Aggregate("sales", AggSum)
	require.NoError(t, err)
	assert.Equal(t, 2000.0, sum)
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "300", FormatNumber(300))
	assert.Equal(t, "0.33", FormatNumber(1.0/3.0))
	assert.Equal(t, "-5", FormatNumber(-5))
}

func TestParseTime(t *testing.T) {
	for _, v := range []string{"2024-02-29", "2024/02/29", "2024年2月29日"} {
		_, ok := ParseTime(v)
		assert.True(t, ok, "should parse %q", v)
	}
	_, ok := ParseTime("not a date")
	assert.False(t, ok)
}
