package auth

// userIdentity is the snapshot of a user a token is minted from
type userIdentity struct {
	id    string
	email string
	role  Role
}

// IdentityFromUser captures the token relevant fields of user. Later
// changes to user do not affect the returned Identity.
func IdentityFromUser(user *User) Identity {
	if user == nil {
		return nil
	}
	return userIdentity{
		id:    user.ID.String(),
		email: user.Email,
		role:  user.Role,
	}
}

func (i userIdentity) ID() string    { return i.id }
func (i userIdentity) Email() string { return i.email }
func (i userIdentity) Role() string  { return string(i.role) }
