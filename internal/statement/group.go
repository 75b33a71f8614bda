package statement

import "carteira/internal/core"

// MonthBucket is one statement section: a month label and the transactions
// that fall in that calendar month, in input order.
type MonthBucket struct {
	Label        string
	Transactions []core.Transaction
}

// GroupByMonth partitions transactions into calendar-month buckets. Buckets
// appear in first-occurrence order of the input, so a newest-first input
// yields newest-month-first buckets; no independent re-sort happens.
func GroupByMonth(txs []core.Transaction) []MonthBucket {
	var buckets []MonthBucket
	index := make(map[string]int)

	for _, tx := range txs {
		key := tx.Date.MonthKey()
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, MonthBucket{Label: key})
		}
		buckets[i].Transactions = append(buckets[i].Transactions, tx)
	}
	return buckets
}
