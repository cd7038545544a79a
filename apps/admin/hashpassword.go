package main

import (
	"golang.org/x/crypto/bcrypt"
)

// hashPassword prints the bcrypt hash of pwd.
func (cli *commandLine) hashPassword(pwd []byte) error {
	hash, err := bcrypt.GenerateFromPassword(pwd, bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	cli.printf("%s\n", hash)
	return nil
}
