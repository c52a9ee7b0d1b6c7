package portfolio

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AssetType string

const (
	AssetTypeStock  AssetType = "STOCK"
	AssetTypeOption AssetType = "OPTION"
)

func (t AssetType) String() string {
	return string(t)
}

func (t AssetType) IsValid() bool {
	switch t {
	case AssetTypeStock, AssetTypeOption:
		return true
	default:
		return false
	}
}

func NewAssetType(s string) (AssetType, error) {
	t := AssetType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("invalid asset type: %s", s)
	}
	return t, nil
}

type OptionType string

const (
	OptionTypeCall OptionType = "CALL"
	OptionTypePut  OptionType = "PUT"
)

func (t OptionType) IsValid() bool {
	return t == OptionTypeCall || t == OptionTypePut
}

type ExerciseType string

const (
	ExerciseTypeAmerican ExerciseType = "AMERICAN"
	ExerciseTypeEuropean ExerciseType = "EUROPEAN"
)

func (t ExerciseType) IsValid() bool {
	return t == ExerciseTypeAmerican || t == ExerciseTypeEuropean
}

// Asset is a traded instrument identified by a unique ticker. Rows are
// created lazily on first reference and never mutated afterwards.
type Asset struct {
	ID        uuid.UUID
	Ticker    string
	Name      string
	Type      AssetType
	Sector    string
	Market    string
	CreatedAt time.Time
}

// OptionDetail is the 1:1 sub-record an OPTION asset owns. The underlying
// asset row must exist before the option row is created.
type OptionDetail struct {
	AssetID           uuid.UUID
	UnderlyingAssetID uuid.UUID
	OptionType        OptionType
	ExerciseType      ExerciseType
	StrikePrice       decimal.Decimal
	ExpirationDate    time.Time
}
