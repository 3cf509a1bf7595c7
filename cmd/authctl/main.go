// Command authctl is the operator tool for the security core: it mints the
// root secrets the server refuses to start without, and hashes passwords
// for manual account provisioning.
//
// Usage:
//
//	authctl gen-secrets          print a fresh JSON secrets bundle
//	authctl hash-password        prompt for a password and print its hash
//
// hash-password reads the pepper from AUTHCORE_PEPPER (hex), the same way
// the server does.
package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"syscall"

	"github.com/dmitrijs2005/authcore/internal/common"
	"github.com/dmitrijs2005/authcore/internal/cryptox"
	"github.com/dmitrijs2005/authcore/internal/secrets"
	"golang.org/x/term"
)

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	switch os.Args[1] {
	case "gen-secrets":
		genSecrets()
	case "hash-password":
		hashPassword()
	default:
		usage()
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: authctl <gen-secrets|hash-password>")
	os.Exit(2)
}

func genSecrets() {
	bundle := map[string]string{
		"pepper":           mustRandHex(secrets.MinPepperLength),
		"signing_key":      mustRandHex(secrets.MinSigningKeyLength),
		"field_master_key": mustRandHex(secrets.MinFieldMasterKeyLength),
	}

	out, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		log.Fatalf("%v", err)
	}
	fmt.Println(string(out))
}

func mustRandHex(size int) string {
	s, err := common.MakeRandHexString(size)
	if err != nil {
		log.Fatalf("random source failure: %v", err)
	}
	return s
}

func hashPassword() {
	pepperHex := os.Getenv(secrets.EnvPepper)
	if pepperHex == "" {
		log.Fatalf("%s is not set", secrets.EnvPepper)
	}
	pepper, err := hex.DecodeString(pepperHex)
	if err != nil {
		log.Fatalf("decoding pepper: %v", err)
	}

	hasher, err := cryptox.NewHasher(pepper)
	if err != nil {
		log.Fatalf("%v", err)
	}

	fmt.Fprint(os.Stderr, "Password: ")
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		log.Fatalf("reading password: %v", err)
	}
	defer common.WipeByteArray(password)

	hash, err := hasher.Hash(string(password))
	if err != nil {
		log.Fatalf("hashing password: %v", err)
	}

	fmt.Println(hash)
}
