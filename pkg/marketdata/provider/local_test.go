package provider

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"

	pkgerrors "github.com/rxtech-lab/feedback-trader/pkg/errors"
)

type LocalAdapterTestSuite struct {
	suite.Suite
	dir string
}

func TestLocalAdapterSuite(t *testing.T) {
	suite.Run(t, new(LocalAdapterTestSuite))
}

func (suite *LocalAdapterTestSuite) SetupTest() {
	suite.dir = suite.T().TempDir()
}

func (suite *LocalAdapterTestSuite) writeFile(name, content string) string {
	path := filepath.Join(suite.dir, name)
	suite.Require().NoError(os.WriteFile(path, []byte(content), 0o644))

	return path
}

func (suite *LocalAdapterTestSuite) TestFetchCSVWithSynonyms() {
	suite.writeFile("AAPL.csv", "Date,Open,High,Low,Close,Adj Close,Volume\n"+
		"2024-01-03,3,4,2,3.5,3.4,300\n"+
		"2024-01-02,2,3,1,2.5,2.4,200\n"+
		"2024-01-04,4,5,3,4.5,4.4,400\n")
	adapter := NewLocalAdapter(suite.dir, nil)

	series, err := adapter.Fetch(context.Background(), FetchRequest{Symbol: "AAPL"})
	suite.Require().NoError(err)
	suite.Equal(3, series.Len())
	suite.Equal(day(2), series.At(0).Time)
	suite.Equal(2.5, series.At(0).Close)
	suite.Equal(2.4, series.At(0).AdjClose.Unwrap())
	suite.Equal(200.0, series.At(0).Volume.Unwrap())
}

func (suite *LocalAdapterTestSuite) TestFetchFiltersInclusiveRange() {
	suite.writeFile("MSFT.csv", "timestamp,open_price,high,low,price,vol\n"+
		"2024-01-01 00:00:00,1,1,1,1,1\n"+
		"2024-01-02 00:00:00,2,2,2,2,2\n"+
		"2024-01-03 00:00:00,3,3,3,3,3\n"+
		"2024-01-04 00:00:00,4,4,4,4,4\n")
	adapter := NewLocalAdapter(suite.dir, nil)

	series, err := adapter.Fetch(context.Background(), FetchRequest{
		Symbol: "MSFT",
		Start:  optional.Some(day(2)),
		End:    optional.Some(day(3)),
	})
	suite.Require().NoError(err)
	suite.Equal([]float64{2, 3}, series.Closes())
	suite.True(series.At(0).AdjClose.IsNone())
}

func (suite *LocalAdapterTestSuite) TestFetchExplicitPath() {
	path := suite.writeFile("custom.csv", "time,open,high,low,close\n1704067200,1,2,0.5,1.5\n")
	adapter := NewLocalAdapter("/nonexistent", nil)

	series, err := adapter.Fetch(context.Background(), FetchRequest{Symbol: path})
	suite.Require().NoError(err)
	suite.Equal(1, series.Len())
	suite.Equal(day(1), series.At(0).Time)
	suite.True(series.At(0).Volume.IsNone())
}

func (suite *LocalAdapterTestSuite) TestFetchBaseOverride() {
	other := suite.T().TempDir()
	suite.Require().NoError(os.WriteFile(filepath.Join(other, "BTC_USD.csv"), []byte("date,open,high,low,close\n2024-01-05,1,1,1,9\n"), 0o644))
	adapter := NewLocalAdapter(suite.dir, nil)

	series, err := adapter.Fetch(context.Background(), FetchRequest{
		Symbol:  "BTC/USD",
		Options: map[string]string{OptionCSVBase: other},
	})
	suite.Require().NoError(err)
	suite.Equal([]float64{9}, series.Closes())
}

func (suite *LocalAdapterTestSuite) TestFetchParquet() {
	path := filepath.Join(suite.dir, "SPY.parquet")
	db, err := sql.Open("duckdb", ":memory:")
	suite.Require().NoError(err)
	defer db.Close()

	_, err = db.Exec(fmt.Sprintf(`COPY (SELECT DATE '2024-01-02' AS date, 1.0::DOUBLE AS open, 2.0::DOUBLE AS high, 0.5::DOUBLE AS low, 1.5::DOUBLE AS close, 100 AS volume) TO '%s' (FORMAT PARQUET)`, path))
	suite.Require().NoError(err)

	series, err := NewLocalAdapter(suite.dir, nil).Fetch(context.Background(), FetchRequest{Symbol: "SPY"})
	suite.Require().NoError(err)
	suite.Equal(1, series.Len())
	suite.Equal(day(2), series.At(0).Time)
	suite.InDelta(1.5, series.At(0).Close, 1e-9)
	suite.InDelta(100.0, series.At(0).Volume.Unwrap(), 1e-9)
}

func (suite *LocalAdapterTestSuite) TestFetchMissingFile() {
	adapter := NewLocalAdapter(suite.dir, nil)

	_, err := adapter.Fetch(context.Background(), FetchRequest{Symbol: "NOPE"})
	suite.True(pkgerrors.HasCode(err, pkgerrors.ErrCodeDataNotFound))

	_, err = adapter.Fetch(context.Background(), FetchRequest{Symbol: filepath.Join(suite.dir, "missing.csv")})
	suite.True(pkgerrors.HasCode(err, pkgerrors.ErrCodeDataNotFound))
}

func (suite *LocalAdapterTestSuite) TestFetchWithoutOHLC() {
	suite.writeFile("BAD.csv", "date,value\n2024-01-01,1\n")

	_, err := NewLocalAdapter(suite.dir, nil).Fetch(context.Background(), FetchRequest{Symbol: "BAD"})
	suite.True(pkgerrors.HasCode(err, pkgerrors.ErrCodeAdapterInternal))
}

func (suite *LocalAdapterTestSuite) TestToTime() {
	tests := []struct {
		name     string
		value    any
		expected time.Time
	}{
		{"time value", time.Date(2024, 1, 2, 0, 0, 0, 0, time.FixedZone("x", 3600)), time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC)},
		{"date string", "2024-01-02", day(2)},
		{"slash string", "2024/01/02", day(2)},
		{"rfc3339", "2024-01-02T00:00:00Z", day(2)},
		{"epoch seconds", int64(1704153600), day(2)},
		{"epoch millis", int64(1704153600000), day(2)},
		{"epoch string", "1704153600", day(2)},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			got, err := toTime(tc.value)
			suite.NoError(err)
			suite.True(tc.expected.Equal(got), "got %v", got)
		})
	}

	_, err := toTime("yesterday")
	suite.Error(err)
}

func (suite *LocalAdapterTestSuite) TestSanitizeKey() {
	suite.Equal("BTC_USD", SanitizeKey("BTC/USD"))
	suite.Equal("a_b_c", SanitizeKey(`a\b:c`))
}
