package clientmanager

// ResolveTLS reconciles the verify, insecure and CA bundle flags into the
// effective verify flag and CA bundle path. verify and insecure are
// tri-state: nil means the user did not set them.
//
// --insecure always wins, even over --os-cacert. A CA bundle implies
// verification. Otherwise an explicit --verify value is kept and the default
// is to verify.
func ResolveTLS(verify, insecure *bool, cacert string) (bool, string) {
	if insecure != nil && *insecure {
		return false, ""
	}
	if cacert != "" {
		return true, cacert
	}
	if verify != nil {
		return *verify, ""
	}
	return true, ""
}
