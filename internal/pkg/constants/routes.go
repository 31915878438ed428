package constants

// Static route constants
const (
	IcellRoute                = "/icell"
	SMSNotificationRoute      = "/sms/notification"
	DatasyncNotificationRoute = "/datasync/notification"
	SecureDNotificationRoute  = "/secure-d/notification"
	ContentRoute              = "/content"
	DailyContentRoute         = "/daily"
	HealthRoute               = "/up"
)
