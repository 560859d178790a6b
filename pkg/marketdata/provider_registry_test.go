package marketdata

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ProviderRegistryTestSuite struct {
	suite.Suite
}

func TestProviderRegistryTestSuite(t *testing.T) {
	suite.Run(t, new(ProviderRegistryTestSuite))
}

func (suite *ProviderRegistryTestSuite) TestGetSupportedProviders() {
	providers := GetSupportedProviders()

	suite.Equal([]string{"binance", "polygon", "yahoo"}, providers)
}

func (suite *ProviderRegistryTestSuite) TestGetProviderInfo_Yahoo() {
	info, err := GetProviderInfo("yahoo")

	suite.NoError(err)
	suite.Equal("yahoo", info.Name)
	suite.Equal("Yahoo Finance", info.DisplayName)
	suite.False(info.RequiresAuth)
	suite.True(info.AdjustedClose)
}

func (suite *ProviderRegistryTestSuite) TestGetProviderInfo_Polygon() {
	info, err := GetProviderInfo("polygon")

	suite.NoError(err)
	suite.Equal("Polygon.io", info.DisplayName)
	suite.True(info.RequiresAuth)
	suite.False(info.AdjustedClose)
	suite.NotEmpty(info.Description)
}

func (suite *ProviderRegistryTestSuite) TestGetProviderInfo_Unknown() {
	_, err := GetProviderInfo("bloomberg")

	suite.Error(err)
	suite.Contains(err.Error(), "unsupported provider")
}

func (suite *ProviderRegistryTestSuite) TestProviderInfoJSON() {
	info, err := GetProviderInfo("binance")
	suite.Require().NoError(err)

	data, err := json.Marshal(info)
	suite.Require().NoError(err)
	suite.JSONEq(`{"name":"binance","displayName":"Binance","description":"Cryptocurrency exchange with extensive market data for crypto trading pairs","requiresAuth":false,"adjustedClose":false}`, string(data))
}
