/*
Package ledger moves money on cards.

Every operation runs as one database transaction: the participating card
rows are locked with SELECT ... FOR UPDATE, the request is validated and
limit-checked against the locked state, and only then are balances, usage
counters and the append-only transaction records written. A rejected
request therefore never leaves partial state behind, and two operations on
the same card are serialized by the row lock.

Usage:

	svc := ledger.NewService(cardRepo, limits, cache, ledger.Config{}, metrics, log)

	res, err := svc.Withdraw(ctx, ledger.WithdrawRequest{
	    Principal: principal,
	    CardID:    cardID,
	    Amount:    money.MustParse("50.00"),
	})

Transfers lock both cards in ascending id order regardless of direction, so
two opposite transfers between the same pair cannot deadlock.

Error Handling:

Validation and business-rule failures are returned as the classified errors
of package errors (CARD_NOT_ACTIVE, INSUFFICIENT_FUNDS,
DAILY_WITHDRAWAL_LIMIT_EXCEEDED, ...). Storage and lock failures are
returned as TRANSIENT_FAILURE; nothing was committed and the caller may
retry the whole operation. The service itself never retries.
*/
package ledger
