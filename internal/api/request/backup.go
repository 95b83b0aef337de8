package request

type CreateBackup struct {
	SiteID        string `json:"site_id" validate:"required"`
	Type          string `json:"type" validate:"required,oneof=full database files"`
	RetentionDays int    `json:"retention_days" validate:"omitempty,min=1,max=365"`
}
