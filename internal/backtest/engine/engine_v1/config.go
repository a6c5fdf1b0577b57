package engine

import (
	"encoding/json"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-settlement/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-settlement/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// SimulationEngineV1Config is the exit policy and fee schedule of one simulation run.
// All percentages are whole-number percent, 5 means 5%.
// A config is treated as immutable once a run starts.
type SimulationEngineV1Config struct {
	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital" jsonschema:"title=Initial Capital,description=Starting cash of the shared pool,minimum=0" validate:"gt=0"`
	// PerInstrumentAllocation is the capital reserved for each buy. Zero means a third of the initial capital.
	PerInstrumentAllocation float64                    `yaml:"per_instrument_allocation" json:"per_instrument_allocation" jsonschema:"title=Per Instrument Allocation,description=Capital reserved for each buy. Zero means a third of the initial capital,minimum=0" validate:"gte=0"`
	ProfitThresholdPct      float64                    `yaml:"profit_threshold_pct" json:"profit_threshold_pct" jsonschema:"title=Profit Threshold,description=Sell when the close is this many percent above the buy price" validate:"gte=0"`
	StopLossPct             float64                    `yaml:"stop_loss_pct" json:"stop_loss_pct" jsonschema:"title=Stop Loss,description=Sell when the close is this many percent below the buy price,minimum=0" validate:"gte=0"`
	MaxHoldingDays          int                        `yaml:"max_holding_days" json:"max_holding_days" jsonschema:"title=Max Holding Days,description=Trading days after the buy day before a forced exit,minimum=1" validate:"gt=0"`
	BuySlippagePct          float64                    `yaml:"buy_slippage_pct" json:"buy_slippage_pct" jsonschema:"title=Buy Slippage,description=Price adjustment added to buys in percent,minimum=0" validate:"gte=0"`
	SellSlippagePct         float64                    `yaml:"sell_slippage_pct" json:"sell_slippage_pct" jsonschema:"title=Sell Slippage,description=Price adjustment subtracted from sells in percent,minimum=0" validate:"gte=0"`
	SlippageCap             float64                    `yaml:"slippage_cap" json:"slippage_cap" jsonschema:"title=Slippage Cap,description=Largest slippage per share in currency units,minimum=0" validate:"gte=0"`
	Broker                  commission_fee.Broker      `yaml:"broker" json:"broker" jsonschema:"title=Broker,description=The broker to use for commission calculations" validate:"oneof=a_share zero_commission"`
	CommissionRatePct       float64                    `yaml:"commission_rate_pct" json:"commission_rate_pct" jsonschema:"title=Commission Rate,description=Commission in percent of the traded amount,minimum=0" validate:"gte=0"`
	MinCommission           float64                    `yaml:"min_commission" json:"min_commission" jsonschema:"title=Minimum Commission,description=Smallest commission charged on a trade,minimum=0" validate:"gte=0"`
	StampTaxRatePct         float64                    `yaml:"stamp_tax_rate_pct" json:"stamp_tax_rate_pct" jsonschema:"title=Stamp Tax Rate,description=Sell side tax in percent of the traded amount,minimum=0" validate:"gte=0"`
	DailyPriceLimitPct      float64                    `yaml:"daily_price_limit_pct" json:"daily_price_limit_pct" jsonschema:"title=Daily Price Limit,description=Limit-up and limit-down threshold in percent" validate:"gt=0"`
	BoardLot                int                        `yaml:"board_lot" json:"board_lot" jsonschema:"title=Board Lot,description=Minimum tradable share increment,minimum=1" validate:"gt=0"`
	RiskFreeRatePct         float64                    `yaml:"risk_free_rate_pct" json:"risk_free_rate_pct" jsonschema:"title=Risk Free Rate,description=Annual risk free rate in percent" validate:"gte=0"`
	TradingDaysPerYear      int                        `yaml:"trading_days_per_year" json:"trading_days_per_year" jsonschema:"title=Trading Days Per Year,minimum=1" validate:"gt=0"`
	RecentWindowDays        int                        `yaml:"recent_window_days" json:"recent_window_days" jsonschema:"title=Recent Window Days,description=Calendar days covered by the trailing report,minimum=0" validate:"gte=0"`
	StartDate               optional.Option[time.Time] `yaml:"start_date" json:"start_date" jsonschema:"title=Start Date,description=Ignore signals before this date"`
	EndDate                 optional.Option[time.Time] `yaml:"end_date" json:"end_date" jsonschema:"title=End Date,description=Ignore signals after this date"`
}

// configFile is the on-disk shape of the config.
type configFile struct {
	InitialCapital          float64               `yaml:"initial_capital"`
	PerInstrumentAllocation float64               `yaml:"per_instrument_allocation"`
	ProfitThresholdPct      float64               `yaml:"profit_threshold_pct"`
	StopLossPct             float64               `yaml:"stop_loss_pct"`
	MaxHoldingDays          int                   `yaml:"max_holding_days"`
	BuySlippagePct          float64               `yaml:"buy_slippage_pct"`
	SellSlippagePct         float64               `yaml:"sell_slippage_pct"`
	SlippageCap             float64               `yaml:"slippage_cap"`
	Broker                  commission_fee.Broker `yaml:"broker"`
	CommissionRatePct       float64               `yaml:"commission_rate_pct"`
	MinCommission           float64               `yaml:"min_commission"`
	StampTaxRatePct         float64               `yaml:"stamp_tax_rate_pct"`
	DailyPriceLimitPct      float64               `yaml:"daily_price_limit_pct"`
	BoardLot                int                   `yaml:"board_lot"`
	RiskFreeRatePct         float64               `yaml:"risk_free_rate_pct"`
	TradingDaysPerYear      int                   `yaml:"trading_days_per_year"`
	RecentWindowDays        int                   `yaml:"recent_window_days"`
	StartDate               *time.Time            `yaml:"start_date,omitempty"`
	EndDate                 *time.Time            `yaml:"end_date,omitempty"`
}

func (c SimulationEngineV1Config) toFile() configFile {
	file := configFile{
		InitialCapital:          c.InitialCapital,
		PerInstrumentAllocation: c.PerInstrumentAllocation,
		ProfitThresholdPct:      c.ProfitThresholdPct,
		StopLossPct:             c.StopLossPct,
		MaxHoldingDays:          c.MaxHoldingDays,
		BuySlippagePct:          c.BuySlippagePct,
		SellSlippagePct:         c.SellSlippagePct,
		SlippageCap:             c.SlippageCap,
		Broker:                  c.Broker,
		CommissionRatePct:       c.CommissionRatePct,
		MinCommission:           c.MinCommission,
		StampTaxRatePct:         c.StampTaxRatePct,
		DailyPriceLimitPct:      c.DailyPriceLimitPct,
		BoardLot:                c.BoardLot,
		RiskFreeRatePct:         c.RiskFreeRatePct,
		TradingDaysPerYear:      c.TradingDaysPerYear,
		RecentWindowDays:        c.RecentWindowDays,
	}

	if c.StartDate.IsSome() {
		start := c.StartDate.Unwrap()
		file.StartDate = &start
	}

	if c.EndDate.IsSome() {
		end := c.EndDate.Unwrap()
		file.EndDate = &end
	}

	return file
}

// UnmarshalYAML decodes over the current values, so fields missing from the
// document keep whatever the receiver already holds.
func (c *SimulationEngineV1Config) UnmarshalYAML(value *yaml.Node) error {
	file := c.toFile()
	if err := value.Decode(&file); err != nil {
		return err
	}

	c.InitialCapital = file.InitialCapital
	c.PerInstrumentAllocation = file.PerInstrumentAllocation
	c.ProfitThresholdPct = file.ProfitThresholdPct
	c.StopLossPct = file.StopLossPct
	c.MaxHoldingDays = file.MaxHoldingDays
	c.BuySlippagePct = file.BuySlippagePct
	c.SellSlippagePct = file.SellSlippagePct
	c.SlippageCap = file.SlippageCap
	c.Broker = file.Broker
	c.CommissionRatePct = file.CommissionRatePct
	c.MinCommission = file.MinCommission
	c.StampTaxRatePct = file.StampTaxRatePct
	c.DailyPriceLimitPct = file.DailyPriceLimitPct
	c.BoardLot = file.BoardLot
	c.RiskFreeRatePct = file.RiskFreeRatePct
	c.TradingDaysPerYear = file.TradingDaysPerYear
	c.RecentWindowDays = file.RecentWindowDays

	if file.StartDate != nil {
		c.StartDate = optional.Some(*file.StartDate)
	}

	if file.EndDate != nil {
		c.EndDate = optional.Some(*file.EndDate)
	}

	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (c SimulationEngineV1Config) MarshalYAML() (any, error) {
	return c.toFile(), nil
}

// Validate returns a fatal error for a config a run cannot use.
func (c SimulationEngineV1Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
			return errors.Wrapf(fieldErrorCode(fieldErrors[0].StructField()), err, "invalid %s", fieldErrors[0].Field())
		}

		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid simulation config", err)
	}

	if c.Allocation().GreaterThan(decimal.NewFromFloat(c.InitialCapital)) {
		return errors.Newf(errors.ErrCodeInvalidAllocation, "per instrument allocation %.2f exceeds initial capital %.2f",
			c.PerInstrumentAllocation, c.InitialCapital)
	}

	if c.StartDate.IsSome() && c.EndDate.IsSome() && c.EndDate.Unwrap().Before(c.StartDate.Unwrap()) {
		return errors.New(errors.ErrCodeInvalidConfiguration, "end date is before start date")
	}

	return nil
}

func fieldErrorCode(field string) errors.ErrorCode {
	switch field {
	case "MaxHoldingDays":
		return errors.ErrCodeInvalidHoldingDays
	case "ProfitThresholdPct":
		return errors.ErrCodeInvalidTakeProfit
	case "StopLossPct":
		return errors.ErrCodeInvalidStopLoss
	case "InitialCapital", "PerInstrumentAllocation":
		return errors.ErrCodeInvalidAllocation
	case "DailyPriceLimitPct":
		return errors.ErrCodeInvalidPriceLimit
	case "Broker":
		return errors.ErrCodeInvalidConfiguration
	case "BoardLot":
		return errors.ErrCodeInvalidBoardLot
	case "BuySlippagePct", "SellSlippagePct", "SlippageCap", "CommissionRatePct", "MinCommission",
		"StampTaxRatePct", "RiskFreeRatePct", "TradingDaysPerYear":
		return errors.ErrCodeInvalidRate
	default:
		return errors.ErrCodeInvalidConfiguration
	}
}

// Allocation returns the capital reserved for one buy, rounded to cents.
func (c SimulationEngineV1Config) Allocation() decimal.Decimal {
	if c.PerInstrumentAllocation > 0 {
		return decimal.NewFromFloat(c.PerInstrumentAllocation).Round(2)
	}

	return decimal.NewFromFloat(c.InitialCapital).Div(decimal.NewFromInt(3)).Round(2)
}

// InitialCash returns the initial capital as a decimal.
func (c SimulationEngineV1Config) InitialCash() decimal.Decimal {
	return decimal.NewFromFloat(c.InitialCapital).Round(2)
}

// InWindow reports whether date lies inside the optional start and end dates.
func (c SimulationEngineV1Config) InWindow(date time.Time) bool {
	if c.StartDate.IsSome() && date.Before(c.StartDate.Unwrap()) {
		return false
	}

	if c.EndDate.IsSome() && date.After(c.EndDate.Unwrap()) {
		return false
	}

	return true
}

// CommissionFee returns the commission schedule of the configured broker.
func (c SimulationEngineV1Config) CommissionFee() commission_fee.CommissionFee {
	return commission_fee.GetCommissionFeeHandler(c.Broker,
		decimal.NewFromFloat(c.CommissionRatePct), decimal.NewFromFloat(c.MinCommission))
}

// StampTax returns the sell side stamp tax schedule.
func (c SimulationEngineV1Config) StampTax() commission_fee.StampTax {
	return commission_fee.NewSellSideStampTax(decimal.NewFromFloat(c.StampTaxRatePct))
}

// GenerateSchema generates a JSON schema for the SimulationEngineV1Config
func (c *SimulationEngineV1Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t.String() == "optional.Option[time.Time]" {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date",
				}
			}

			if strings.Contains(t.String(), "commission_fee.Broker") {
				return &jsonschema.Schema{
					Type: "string",
					Enum: commission_fee.AllBrokers,
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)

	schema.Title = "simulation-engine-v1-config"
	schema.Description = "Configuration schema for SimulationEngineV1"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for the SimulationEngineV1Config
func (c *SimulationEngineV1Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

// DefaultConfig returns the exit policy and fee schedule of the A-share market.
func DefaultConfig() SimulationEngineV1Config {
	return SimulationEngineV1Config{
		InitialCapital:          50000,
		PerInstrumentAllocation: 16666.67,
		ProfitThresholdPct:      0,
		StopLossPct:             5,
		MaxHoldingDays:          5,
		BuySlippagePct:          0.1,
		SellSlippagePct:         0.1,
		SlippageCap:             0.01,
		Broker:                  commission_fee.BrokerAShare,
		CommissionRatePct:       0.01,
		MinCommission:           5,
		StampTaxRatePct:         0.1,
		DailyPriceLimitPct:      9.5,
		BoardLot:                100,
		RiskFreeRatePct:         2,
		TradingDaysPerYear:      252,
		RecentWindowDays:        30,
		StartDate:               optional.None[time.Time](),
		EndDate:                 optional.None[time.Time](),
	}
}

// TestConfig returns the default config without slippage, so fills happen at bar prices.
func TestConfig() SimulationEngineV1Config {
	config := DefaultConfig()
	config.BuySlippagePct = 0
	config.SellSlippagePct = 0

	return config
}

// ParseConfig decodes a YAML document on top of DefaultConfig and validates it.
func ParseConfig(data []byte) (SimulationEngineV1Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return SimulationEngineV1Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse simulation config", err)
	}

	if err := config.Validate(); err != nil {
		return SimulationEngineV1Config{}, err
	}

	return config, nil
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (SimulationEngineV1Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SimulationEngineV1Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config %s", path)
	}

	return ParseConfig(data)
}
