package logging

const (
	NameScheduler      = "Scheduler"
	NameDutyProvider   = "DutyProvider"
	NameDutyLedger     = "DutyLedger"
	NameValidator      = "Validator"
	NameChainView      = "ChainView"
	NameMetricsHandler = "MetricsHandler"

	NameBadgerDBLog       = "BadgerDBLog"
	NameBadgerDBReporting = "BadgerDBReporting"
	NamePebbleDBLog       = "PebbleDBLog"
)
