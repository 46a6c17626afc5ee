package rate

func otpIdentifierKey(identifier string) string {
	return "afro:" + identifier
}

func otpIPKey(ip string) string {
	return "afroip:" + ip
}

func loginKey(identifier string) string {
	return "afrl:" + identifier
}
