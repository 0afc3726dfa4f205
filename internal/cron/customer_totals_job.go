package cron

import (
	"context"
	"fmt"
)

type totalsReconciler interface {
	ReconcileTotals(ctx context.Context) (int64, error)
}

type customerTotalsJob struct {
	customers totalsReconciler
}

func NewCustomerTotalsJob(customers totalsReconciler) (Job, error) {
	if customers == nil {
		return nil, fmt.Errorf("customer service required")
	}
	return &customerTotalsJob{customers: customers}, nil
}

func (j *customerTotalsJob) Name() string { return "customer-totals" }

func (j *customerTotalsJob) Run(ctx context.Context) (int64, error) {
	return j.customers.ReconcileTotals(ctx)
}
