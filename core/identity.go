package core

// Identity names the author/committer attached to a transaction's commit
// when the transaction itself does not set one.
type Identity struct {
	Name  string
	Email string
}

// IsZero reports whether the identity carries neither a name nor an email.
func (i Identity) IsZero() bool {
	return i.Name == "" && i.Email == ""
}
