package strategy

import (
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/rxtech-lab/feedback-trader/pkg/errors"
	pkgstrategy "github.com/rxtech-lab/feedback-trader/pkg/strategy"
)

var validate = validator.New()

// Factory builds a strategy from loosely typed parameters.
type Factory func(params map[string]any) (Strategy, error)

// Registry maps strategy names to factories.
type Registry struct {
	factories map[string]Factory
	configs   map[string]any
}

// NewRegistry returns a registry with the built-in strategies.
func NewRegistry() *Registry {
	r := &Registry{
		factories: make(map[string]Factory),
		configs:   make(map[string]any),
	}

	r.Register(SMACrossoverName, DefaultSMACrossoverConfig(), func(params map[string]any) (Strategy, error) {
		config := DefaultSMACrossoverConfig()
		if err := DecodeParams(params, &config); err != nil {
			return nil, err
		}

		return NewSMACrossover(config)
	})
	r.Alias("SMAStrategy", SMACrossoverName)

	r.Register(MACDCrossoverName, DefaultMACDCrossoverConfig(), func(params map[string]any) (Strategy, error) {
		config := DefaultMACDCrossoverConfig()
		if err := DecodeParams(params, &config); err != nil {
			return nil, err
		}

		return NewMACDCrossover(config)
	})

	return r
}

// Register adds a factory. config is a zero or default value of the strategy's
// parameter struct, used for schema generation.
func (r *Registry) Register(name string, config any, factory Factory) {
	r.factories[name] = factory
	r.configs[name] = config
}

// Alias makes alias resolve to the factory registered under name.
func (r *Registry) Alias(alias string, name string) {
	r.factories[alias] = r.factories[name]
}

// New builds the named strategy.
func (r *Registry) New(name string, params map[string]any) (Strategy, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeUnsupportedStrategy, "unknown strategy %q", name)
	}

	return factory(params)
}

// Names returns the canonical strategy names in ascending order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.configs))
	for name := range r.configs {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Config returns the parameter struct registered for name.
func (r *Registry) Config(name string) (any, bool) {
	config, ok := r.configs[name]

	return config, ok
}

// Schema returns the JSON schema of the parameters accepted by name.
func (r *Registry) Schema(name string) (string, error) {
	config, ok := r.configs[name]
	if !ok {
		return "", errors.Newf(errors.ErrCodeUnsupportedStrategy, "unknown strategy %q", name)
	}

	return pkgstrategy.ToJSONSchema(config)
}

// DecodeParams decodes params into out using mapstructure tags. Numbers given
// as floats or strings (as JSON and YAML produce them) are converted.
func DecodeParams(params map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to create params decoder", err)
	}

	if err := decoder.Decode(params); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "invalid strategy params", err)
	}

	return nil
}
