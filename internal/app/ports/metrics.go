package ports

type TriggerMetrics interface {
	RecordTrigger(outcome string)
	RecordGrant(rare, queued bool)
	RecordRedeemed(batches int)
	RecordFault()
}
