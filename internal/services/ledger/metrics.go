package ledger

import (
	"time"

	"cardledger/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// NoopMetricsCollector is a no-op implementation of MetricsCollector
type NoopMetricsCollector struct{}

func (n *NoopMetricsCollector) RecordOperationDuration(string, time.Duration)                   {}
func (n *NoopMetricsCollector) RecordOperationResult(string, string)                            {}
func (n *NoopMetricsCollector) RecordBalanceChange(uuid.UUID, decimal.Decimal, decimal.Decimal) {}
func (n *NoopMetricsCollector) RecordError(string, string)                                      {}
func (n *NoopMetricsCollector) RecordTransaction(models.TransactionType, decimal.Decimal)       {}

// LogMetricsCollector writes every measurement as a debug log entry.
type LogMetricsCollector struct {
	Log logrus.FieldLogger
}

func (m *LogMetricsCollector) RecordOperationDuration(op string, d time.Duration) {
	m.Log.WithFields(logrus.Fields{"metric": "operation_duration", "operation": op, "duration_ms": d.Milliseconds()}).Debug()
}

func (m *LogMetricsCollector) RecordOperationResult(op, result string) {
	m.Log.WithFields(logrus.Fields{"metric": "operation_result", "operation": op, "result": result}).Debug()
}

func (m *LogMetricsCollector) RecordBalanceChange(cardID uuid.UUID, oldBalance, newBalance decimal.Decimal) {
	m.Log.WithFields(logrus.Fields{
		"metric":      "balance_change",
		"card_id":     cardID,
		"old_balance": oldBalance.StringFixed(2),
		"new_balance": newBalance.StringFixed(2),
	}).Debug()
}

func (m *LogMetricsCollector) RecordError(op, code string) {
	m.Log.WithFields(logrus.Fields{"metric": "operation_error", "operation": op, "code": code}).Debug()
}

func (m *LogMetricsCollector) RecordTransaction(txType models.TransactionType, amount decimal.Decimal) {
	m.Log.WithFields(logrus.Fields{"metric": "transaction", "type": txType, "amount": amount.StringFixed(2)}).Debug()
}
