package resample

import (
	"errors"
	"testing"

	"smc-lab/internal/domain"
)

const hourMs = int64(3_600_000)

func TestAggregate_HourlyToFourHour(t *testing.T) {
	var candles []domain.Candle
	for i := int64(0); i < 8; i++ {
		p := float64(100 + i)
		candles = append(candles, domain.Candle{
			Timestamp: i * hourMs,
			Open:      p,
			High:      p + 2,
			Low:       p - 1,
			Close:     p + 1,
			Volume:    10,
		})
	}

	got, err := Aggregate(candles, "1h", "4h")
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(got))
	}

	first := got[0]
	if first.Timestamp != 0 || first.Open != 100 || first.High != 105 || first.Low != 99 || first.Close != 104 {
		t.Errorf("unexpected first bar: %+v", first)
	}
	if first.Volume != 40 {
		t.Errorf("volume = %f, want 40", first.Volume)
	}
	if got[1].Timestamp != 4*hourMs {
		t.Errorf("second bar timestamp = %d", got[1].Timestamp)
	}
}

func TestAggregate_UnalignedStart(t *testing.T) {
	candles := []domain.Candle{
		{Timestamp: 3 * hourMs, Open: 1, High: 1, Low: 1, Close: 1},
		{Timestamp: 4 * hourMs, Open: 2, High: 2, Low: 2, Close: 2},
	}
	got := AggregateMs(candles, 4*hourMs)
	if len(got) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(got))
	}
	if got[0].Timestamp != 0 || got[1].Timestamp != 4*hourMs {
		t.Errorf("unexpected bucket starts: %d, %d", got[0].Timestamp, got[1].Timestamp)
	}
}

func TestAggregate_Incompatible(t *testing.T) {
	_, err := Aggregate(nil, "4h", "1h")
	if !errors.Is(err, ErrIncompatibleTimeframes) {
		t.Errorf("expected ErrIncompatibleTimeframes, got %v", err)
	}

	_, err = Aggregate(nil, "1h", "9h")
	if !errors.Is(err, domain.ErrUnknownTimeframe) {
		t.Errorf("expected ErrUnknownTimeframe, got %v", err)
	}
}

func TestAggregate_Empty(t *testing.T) {
	got, err := Aggregate(nil, "1h", "4h")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}
