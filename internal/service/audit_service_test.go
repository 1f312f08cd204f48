package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/GoPolymarket/gasgate/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditBufferNewestFirstWithFilters(t *testing.T) {
	buf := newAuditBuffer(3)
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		client := "a"
		if i%2 == 1 {
			client = "b"
		}
		buf.Add(&model.AuditLog{
			ID:        fmt.Sprint(i),
			ClientID:  client,
			Action:    "execute_transaction",
			TxHash:    fmt.Sprintf("0x%02x", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	all := buf.List(model.AuditFilter{Limit: 10})
	require.Len(t, all, 3)
	assert.Equal(t, []string{"4", "3", "2"}, []string{all[0].ID, all[1].ID, all[2].ID})

	onlyA := buf.List(model.AuditFilter{ClientID: "a", Limit: 10})
	require.Len(t, onlyA, 2)
	assert.Equal(t, "4", onlyA[0].ID)

	from := base.Add(3 * time.Minute)
	recent := buf.List(model.AuditFilter{From: &from, Limit: 10})
	assert.Len(t, recent, 2)

	byTx := buf.List(model.AuditFilter{TxHash: "0x03", Limit: 10})
	require.Len(t, byTx, 1)
	assert.Equal(t, "3", byTx[0].ID)
	assert.Empty(t, buf.List(model.AuditFilter{Action: "deploy_machine_smart_account"}))
}

func TestAuditServiceWritesAndLists(t *testing.T) {
	svc, err := NewAuditService(t.TempDir(), nil)
	require.NoError(t, err)
	svc.Log(&model.AuditLog{ID: "r1", ClientID: "c", CreatedAt: time.Now()})
	svc.Close()

	records, err := svc.List(context.Background(), model.AuditFilter{ClientID: "c", Limit: 10})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "r1", records[0].ID)
}
