package models

// Permissions is the access level assigned to an account.
type Permissions string

const (
	// TypicalUser is the default access level for newly created accounts.
	TypicalUser Permissions = "typical_user"

	// AdminUser marks accounts managed through the administrative path.
	AdminUser Permissions = "admin_user"
)

// Account is a registered API user. Email and APIKey are both unique in the
// accounts collection and immutable once the account has been created.
type Account struct {
	Email       string      `bson:"email" json:"email"`
	APIKey      string      `bson:"apiKey" json:"apiKey"`
	Permissions Permissions `bson:"permissions" json:"permissions"`
}
