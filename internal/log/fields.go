package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldUserID        = "user_id"
	FieldTransactionID = "transaction_id"
	FieldAccountID     = "account_id"
	FieldBudgetID      = "budget_id"
	FieldInterval      = "interval"
	FieldSweepDate     = "sweep_date"
	FieldDuration      = "duration_ms"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentScheduler = "scheduler"
	ComponentProcessor = "processor"
	ComponentSweeper   = "sweeper"
	ComponentNotify    = "notify"
	ComponentThrottle  = "throttle"
)

// Operations defines standard operation names
const (
	OpSweep    = "sweep"
	OpProcess  = "process"
	OpPublish  = "publish"
	OpConsume  = "consume"
	OpAlert    = "alert"
	OpReport   = "report"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)
