package anomaly

import (
	"fmt"

	"github.com/liamashdown/whalewatch/internal/trade"
	"github.com/liamashdown/whalewatch/internal/wallet"
)

// Tag names one reason a trade looks unusual
type Tag string

// Tags in severity order; Classify returns them in this order
const (
	HeavyActor             Tag = "HEAVY_ACTOR"
	RepeatActor            Tag = "REPEAT_ACTOR"
	CoordinatedVolume      Tag = "COORDINATED_VOLUME"
	ExtremeConfidence      Tag = "EXTREME_CONFIDENCE"
	ContrarianPosition     Tag = "CONTRARIAN_POSITION"
	OversizedPosition      Tag = "OVERSIZED_POSITION"
	MajorCapitalDeployment Tag = "MAJOR_CAPITAL_DEPLOYMENT"
	HighConvictionLikely   Tag = "HIGH_CONVICTION_LIKELY"
	AsymmetricInfoHedge    Tag = "ASYMMETRIC_INFO_HEDGE"
)

// Policy thresholds
const (
	CoordinatedVolumeUSD   = 200_000.0
	ExtremeConfidencePrice = 0.95
	ContrarianPrice        = 0.05
	OversizedQuantity      = 100_000.0
	MajorCapitalUSD        = 100_000.0
	HighConvictionPrice    = 0.90
	HighConvictionQuantity = 50_000.0
	UnlikelyOutcomePrice   = 0.20
	UnlikelyOutcomeUSD     = 50_000.0
)

// Classify evaluates every rule against the trade and optional actor snapshot.
// It has no side effects; the same inputs always yield the same tags.
func Classify(t trade.Trade, actor *wallet.Snapshot) []Tag {
	var tags []Tag

	if actor != nil {
		if actor.IsHeavyActor {
			tags = append(tags, HeavyActor)
		}
		if actor.IsRepeatActor && !actor.IsHeavyActor {
			tags = append(tags, RepeatActor)
		}
		if actor.VolumeLastHour > CoordinatedVolumeUSD {
			tags = append(tags, CoordinatedVolume)
		}
	}

	notional := t.NotionalValue()

	if t.UnitPrice > ExtremeConfidencePrice {
		tags = append(tags, ExtremeConfidence)
	}
	if t.UnitPrice < ContrarianPrice {
		tags = append(tags, ContrarianPosition)
	}
	if t.Quantity > OversizedQuantity {
		tags = append(tags, OversizedPosition)
	}
	if notional > MajorCapitalUSD {
		tags = append(tags, MajorCapitalDeployment)
	}
	if t.UnitPrice > HighConvictionPrice && t.Quantity > HighConvictionQuantity {
		tags = append(tags, HighConvictionLikely)
	}
	if t.UnitPrice < UnlikelyOutcomePrice && notional > UnlikelyOutcomeUSD {
		tags = append(tags, AsymmetricInfoHedge)
	}

	return tags
}

// Label is the short display name
func (tag Tag) Label() string {
	switch tag {
	case HeavyActor:
		return "Heavy actor"
	case RepeatActor:
		return "Repeat actor"
	case CoordinatedVolume:
		return "Coordinated activity"
	case ExtremeConfidence:
		return "Extreme confidence"
	case ContrarianPosition:
		return "Contrarian position"
	case OversizedPosition:
		return "Oversized position"
	case MajorCapitalDeployment:
		return "Major capital deployment"
	case HighConvictionLikely:
		return "High conviction"
	case AsymmetricInfoHedge:
		return "Unlikely outcome bet"
	}
	return string(tag)
}

// Describe renders the sentence shown in notifications
func (tag Tag) Describe(t trade.Trade, actor *wallet.Snapshot) string {
	switch tag {
	case HeavyActor:
		if actor != nil {
			return fmt.Sprintf("HEAVY ACTOR: %d transactions worth $%.2f in last 24h", actor.TxCountLastDay, actor.VolumeLastDay)
		}
	case RepeatActor:
		if actor != nil {
			return fmt.Sprintf("Repeat actor: %d transactions in last hour", actor.TxCountLastHour)
		}
	case CoordinatedVolume:
		if actor != nil {
			return fmt.Sprintf("Coordinated activity: $%.0f volume in past hour", actor.VolumeLastHour)
		}
	case ExtremeConfidence:
		return fmt.Sprintf("Extreme confidence bet (%.1f%% probability)", t.UnitPrice*100)
	case ContrarianPosition:
		return fmt.Sprintf("Contrarian position (%.1f%% probability)", t.UnitPrice*100)
	case OversizedPosition:
		return "Exceptionally large position size"
	case MajorCapitalDeployment:
		return fmt.Sprintf("Major capital deployment: $%.0f", t.NotionalValue())
	case HighConvictionLikely:
		return "High conviction in likely outcome"
	case AsymmetricInfoHedge:
		return "Significant bet on unlikely outcome - possible hedge or information asymmetry"
	}
	return tag.Label()
}

// DescribeAll renders every tag in order
func DescribeAll(tags []Tag, t trade.Trade, actor *wallet.Snapshot) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		out = append(out, tag.Describe(t, actor))
	}
	return out
}
