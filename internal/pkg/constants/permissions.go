package constants

const (
	ViewData      = "view_data"
	BuyCredits    = "buy_credits"
	SellCredits   = "sell_credits"
	RetireCredits = "retire_credits"
	SubmitProject = "submit_project"
	UploadPhotos  = "upload_photos"
	VerifyProject = "verify_project"
	ExportReport  = "export_report"
)

// PermissionRoles maps each permission to roles allowed to perform it.
var PermissionRoles = map[string][]string{
	ViewData:      {NGO, Government, Corporate},
	BuyCredits:    {Corporate},
	SellCredits:   {NGO, Corporate},
	RetireCredits: {Corporate},
	SubmitProject: {NGO},
	UploadPhotos:  {NGO},
	VerifyProject: {Government},
	ExportReport:  {Corporate},
}

// AllowedRole returns true if role is in the list of allowed roles for the permission.
func AllowedRole(permission, role string) bool {
	roles, ok := PermissionRoles[permission]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
