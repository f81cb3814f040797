package repositories

// Models returns every GORM model owned by the repositories, in migration order
func Models() []interface{} {
	return []interface{}{
		&DBOTPCode{},
		&DBIdentity{},
		&DBProfile{},
		&DBTelegramChat{},
		&DBConversation{},
		&DBMessage{},
		&DBNotification{},
	}
}
