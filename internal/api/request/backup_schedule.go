package request

type CreateBackupSchedule struct {
	SiteID        string `json:"site_id" validate:"required"`
	Type          string `json:"type" validate:"required,oneof=full database files"`
	Frequency     string `json:"frequency" validate:"required,oneof=daily weekly monthly"`
	TimeOfDay     string `json:"time_of_day" validate:"required,hhmm"`
	DayOfWeek     *int   `json:"day_of_week" validate:"required_if=Frequency weekly,omitempty,min=0,max=6"`
	DayOfMonth    *int   `json:"day_of_month" validate:"required_if=Frequency monthly,omitempty,min=1,max=31"`
	RetentionDays int    `json:"retention_days" validate:"omitempty,min=1,max=365"`
	IsActive      *bool  `json:"is_active"`
}

type UpdateBackupSchedule struct {
	Type          string `json:"type" validate:"required,oneof=full database files"`
	Frequency     string `json:"frequency" validate:"required,oneof=daily weekly monthly"`
	TimeOfDay     string `json:"time_of_day" validate:"required,hhmm"`
	DayOfWeek     *int   `json:"day_of_week" validate:"required_if=Frequency weekly,omitempty,min=0,max=6"`
	DayOfMonth    *int   `json:"day_of_month" validate:"required_if=Frequency monthly,omitempty,min=1,max=31"`
	RetentionDays int    `json:"retention_days" validate:"omitempty,min=1,max=365"`
	IsActive      bool   `json:"is_active"`
}
