package loader

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/openalloc/core"
)

func TestLoadFile_Contested(t *testing.T) {
	catalog, err := LoadFile(filepath.Join("testdata", "contested.txt"))
	assert.NoError(t, err)

	check.Equal(t, 5, catalog.NumUnits)
	check.Equal(t, 4, len(catalog.Bidders))
	check.Equal(t, 5, catalog.TotalBids())

	check.Equal(t, core.Bid{ID: 1, Value: 4, Units: []int{1, 2}}, catalog.Bidders[0].Bids[0])
	check.Equal(t, core.Bid{ID: 2, Value: 3, Units: []int{5}}, catalog.Bidders[0].Bids[1])
	check.Equal(t, 2, catalog.Bidders[1].ID)
	check.Equal(t, 0, len(catalog.Bidders[3].Bids))
	check.Nil(t, catalog.Validate())

	// the contested fixture stalls at a local optimum below the best packing
	result := core.Search(catalog, core.SearchOptions{})
	check.Equal(t, int64(9), result.Score)
	check.Equal(t, core.StopLocalOptimum, result.Stop)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.txt"))

	var loadErr *LoadError
	check.True(t, errors.As(err, &loadErr))
	check.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadFile_MalformedIsNotLoadError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.txt")
	assert.NoError(t, os.WriteFile(path, []byte("1 2 1 1\n1 1\n1 1 5"), 0o644))

	_, err := LoadFile(path)

	var malformed *MalformedRecordError
	check.True(t, errors.As(err, &malformed))
	var loadErr *LoadError
	check.False(t, errors.As(err, &loadErr))
}

func TestParse_Scenarios(t *testing.T) {
	catalog, err := Parse(strings.NewReader("0 1 2 2  1 1 1 1 5 1  2 1 1 1 3 1"))
	assert.NoError(t, err)

	check.Equal(t, 1, catalog.NumUnits)
	check.Equal(t, int64(5), catalog.Bidders[0].Bids[0].Value)
	check.Equal(t, int64(3), catalog.Bidders[1].Bids[0].Value)
	check.Equal(t, int64(5), core.Search(catalog, core.SearchOptions{}).Score)
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
		field string
		token int
	}{
		{
			name:  "empty input",
			input: "",
			field: "header",
			token: 1,
		},
		{
			name:  "missing units",
			input: "0 3 1 1  1 1  1 2 4 1",
			field: "unit id",
			token: 11,
		},
		{
			name:  "not an integer",
			input: "0 3 1 1  1 1  1 1 x 1",
			field: "bid value",
			token: 9,
		},
		{
			name:  "negative unit count",
			input: "0 -3 0 0",
			field: "unit count",
			token: 2,
		},
		{
			name:  "unit outside range",
			input: "0 3 1 1  1 1  1 1 4 7",
			field: "unit id",
			token: 10,
		},
		{
			name:  "duplicate unit in bid",
			input: "0 3 1 1  1 1  1 2 4 2 2",
			field: "unit id",
			token: 11,
		},
		{
			name:  "declared bid total disagrees",
			input: "0 3 2 1  1 1  1 1 4 2",
			field: "bid count",
			token: 3,
		},
		{
			name:  "huge bidder count",
			input: "0 1 0 999999999999999",
			field: "bidder id",
			token: 5,
		},
		{
			name:  "huge bid count",
			input: "0 1 0 1  1 999999999999999",
			field: "bid id",
			token: 7,
		},
		{
			name:  "huge unit count",
			input: "0 1 1 1  1 1  1 999999999999999 4",
			field: "unit id",
			token: 10,
		},
		{
			name:  "trailing tokens",
			input: "0 3 1 1  1 1  1 1 4 2  9",
			field: "trailing data",
			token: 11,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))

			var malformed *MalformedRecordError
			assert.True(t, errors.As(err, &malformed))
			check.Equal(t, tt.field, malformed.Field)
			check.Equal(t, tt.token, malformed.Token)
		})
	}
}

func TestParse_BidderWithoutBids(t *testing.T) {
	catalog, err := Parse(strings.NewReader("0 2 0 2  7 0  8 0"))
	assert.NoError(t, err)

	check.Equal(t, 2, len(catalog.Bidders))
	check.Equal(t, 7, catalog.Bidders[0].ID)
	check.Equal(t, 0, len(catalog.Bidders[0].Bids))
}
