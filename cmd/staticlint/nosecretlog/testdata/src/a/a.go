package a

import (
	"fmt"
	"log"
)

type account struct {
	Email        string
	PasswordHash string
}

func hash(s string) string { return s }

func signup(email, password string) {
	acc := account{Email: email, PasswordHash: hash(password)}

	fmt.Println("signup", acc.Email)
	fmt.Println("signup", password)            // want `secret password passed to a logging call`
	log.Printf("stored %s", acc.PasswordHash)  // want `secret PasswordHash passed to a logging call`
	_ = fmt.Errorf("signup %s failed", email)
	_ = hash(password)
}
