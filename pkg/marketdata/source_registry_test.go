package marketdata

import (
	"testing"

	"github.com/stretchr/testify/suite"

	pkgerrors "github.com/rxtech-lab/feedback-trader/pkg/errors"
)

type SourceRegistryTestSuite struct {
	suite.Suite
}

func TestSourceRegistrySuite(t *testing.T) {
	suite.Run(t, new(SourceRegistryTestSuite))
}

func (suite *SourceRegistryTestSuite) TestGetSupportedSources() {
	suite.Equal([]string{"binance", "csv", "polygon"}, GetSupportedSources())
}

func (suite *SourceRegistryTestSuite) TestGetSourceInfo() {
	info, err := GetSourceInfo("polygon")
	suite.NoError(err)
	suite.True(info.RequiresAuth)

	info, err = GetSourceInfo("local")
	suite.NoError(err)
	suite.Equal("csv", info.Name)

	_, err = GetSourceInfo("yahoo")
	suite.True(pkgerrors.HasCode(err, pkgerrors.ErrCodeUnknownSource))
}

func (suite *SourceRegistryTestSuite) TestNewDefaultFetcher() {
	fetcher, err := NewDefaultFetcher(FetcherConfig{CacheDir: suite.T().TempDir(), CSVDir: suite.T().TempDir()}, nil)
	suite.Require().NoError(err)
	suite.Equal([]string{"binance", "csv", "local"}, fetcher.Sources())

	fetcher, err = NewDefaultFetcher(FetcherConfig{PolygonAPIKey: "key"}, nil)
	suite.Require().NoError(err)
	suite.Equal([]string{"binance", "csv", "local", "polygon"}, fetcher.Sources())
	suite.Nil(fetcher.cache)
}
