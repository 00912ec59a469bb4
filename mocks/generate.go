package mocks

//go:generate mockgen -destination=./mock_strategy.go -package=mocks github.com/rxtech-lab/feedback-trader/internal/strategy Strategy
//go:generate mockgen -destination=./mock_adapter.go -package=mocks github.com/rxtech-lab/feedback-trader/pkg/marketdata/provider Adapter
//go:generate mockgen -destination=./mock_cache.go -package=mocks github.com/rxtech-lab/feedback-trader/pkg/marketdata/cache Cache
