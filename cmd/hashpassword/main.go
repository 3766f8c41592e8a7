// Command hashpassword prints a bcrypt hash for ADMIN_PASSWORD_HASH.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	if len(os.Args) != 2 {
		color.Red("usage: hashpassword <password>")
		os.Exit(2)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(os.Args[1]), bcrypt.DefaultCost)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	fmt.Println(string(hash))
}
