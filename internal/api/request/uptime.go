package request

type CreateUptimeCheck struct {
	SiteID        string `json:"site_id" validate:"required"`
	URL           string `json:"url" validate:"required,url"`
	CheckInterval int    `json:"check_interval" validate:"omitempty,min=10,max=86400"`
}

type UpdateUptimeCheck struct {
	CheckInterval *int  `json:"check_interval" validate:"omitempty,min=10,max=86400"`
	IsActive      *bool `json:"is_active"`
}
