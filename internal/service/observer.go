package service

import "time"

// Observer 业务指标上报
type Observer interface {
	CheckoutFinished(kind string, elapsed time.Duration)
	StockDecremented(productID uint, quantity int, lockWait time.Duration)
	OrderTransitioned(actor string, from, to string)
}

type nopObserver struct{}

func (nopObserver) CheckoutFinished(string, time.Duration) {}
func (nopObserver) StockDecremented(uint, int, time.Duration) {}
func (nopObserver) OrderTransitioned(string, string, string) {}

func observerOrNop(o Observer) Observer {
	if o == nil {
		return nopObserver{}
	}
	return o
}
