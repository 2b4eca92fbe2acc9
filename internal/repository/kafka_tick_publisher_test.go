package repository

import (
	"encoding/json"
	"testing"

	"MacroPulse/internal/domain/models"
)

func TestEncodeTicks_KeyedByIndicator(t *testing.T) {
	msgs, err := encodeTicks([]models.Tick{
		{Timestamp: 1, Indicator: "USDKRW", Value: 1380},
		{Timestamp: 1, Indicator: "KRUS_SPREAD", Value: -1.1},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(msgs) != 2 || string(msgs[1].Key) != "KRUS_SPREAD" {
		t.Fatalf("msgs=%+v", msgs)
	}
	var back models.Tick
	if err := json.Unmarshal(msgs[0].Value, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Indicator != "USDKRW" || back.Value != 1380 || back.Timestamp != 1 {
		t.Fatalf("payload=%+v", back)
	}
}
