// Package auth stores the database password in the operating system
// keychain so it does not have to live in imgaudit.yaml or .env.
package auth
