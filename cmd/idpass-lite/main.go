// idpass-lite is a command-line harness around pkg/card: it generates a
// fresh issuer identity, issues a signed and encrypted card, and
// verifies a card by PIN or by a presented photo.
//
// Usage:
//
//	idpass-lite genkey -out init.bin
//	idpass-lite issue -init init.bin -surname Doe -given Jane -pin 1234 -photo photo.jpg -out card.bin
//	idpass-lite verify -init init.bin -card card.bin -pin 1234
//	idpass-lite verify -init init.bin -card card.bin -photo photo.jpg
//
// Example:
//
//	idpass-lite genkey -out init.bin
//	idpass-lite issue -init init.bin -surname Doe -given Jane -pin 1234 -out card.bin
//	idpass-lite verify -init init.bin -card card.bin -pin 1234
package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/Effeo/idpass-lite/pkg/card"
	"github.com/Effeo/idpass-lite/pkg/record"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "genkey":
		err = runGenkey(os.Args[2:])
	case "issue":
		err = runIssue(os.Args[2:])
	case "verify":
		err = runVerify(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("idpass-lite %s: %v", os.Args[1], err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: idpass-lite <genkey|issue|verify> [options]")
}

func runGenkey(args []string) error {
	fs := flag.NewFlagSet("genkey", flag.ExitOnError)
	out := fs.String("out", "init.bin", "path to write the serialized ContextInit record")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("generate issuer keypair: %w", err)
	}
	key := make([]byte, card.SymmetricKeySize)
	if _, err := rand.Read(key); err != nil {
		return fmt.Errorf("generate symmetric key: %w", err)
	}

	init := record.ContextInit{
		SymmetricKey:     key,
		IssuerPrivateKey: priv,
		TrustedKeys:      [][]byte{pub},
	}
	b, err := init.Encode()
	if err != nil {
		return fmt.Errorf("encode init record: %w", err)
	}
	if err := os.WriteFile(*out, b, 0600); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}

	log.Printf("wrote %s (issuer public key %x)", *out, pub)
	return nil
}

func runIssue(args []string) error {
	fs := flag.NewFlagSet("issue", flag.ExitOnError)
	initPath := fs.String("init", "init.bin", "path to a ContextInit record from genkey")
	surname := fs.String("surname", "", "surname")
	given := fs.String("given", "", "given name")
	full := fs.String("full", "", "full name")
	uin := fs.String("uin", "", "unique identification number")
	pin := fs.String("pin", "", "PIN securing the private region")
	photoPath := fs.String("photo", "", "path to a photo file (optional)")
	out := fs.String("out", "card.bin", "path to write the serialized container")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := loadContext(*initPath)
	if err != nil {
		return err
	}

	var photo []byte
	if *photoPath != "" {
		photo, err = os.ReadFile(*photoPath)
		if err != nil {
			return fmt.Errorf("read photo: %w", err)
		}
	}

	identity := card.Identity{
		Details: record.CardDetails{
			Surname:   *surname,
			GivenName: *given,
			FullName:  *full,
			UIN:       *uin,
		},
		PIN: *pin,
	}

	containerBytes, err := c.Issue(identity, photo)
	if err != nil && err != card.ErrPhotoInPublicRegion {
		return fmt.Errorf("issue: %w", err)
	}
	if issueErr := err; issueErr == card.ErrPhotoInPublicRegion {
		log.Printf("warning: %v", issueErr)
	}

	if err := os.WriteFile(*out, containerBytes, 0600); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}
	log.Printf("wrote %s (%d bytes)", *out, len(containerBytes))
	return nil
}

func runVerify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	initPath := fs.String("init", "init.bin", "path to a ContextInit record from genkey")
	cardPath := fs.String("card", "card.bin", "path to a serialized container from issue")
	pin := fs.String("pin", "", "PIN to verify against")
	photoPath := fs.String("photo", "", "path to a photo file to verify against")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *pin == "" && *photoPath == "" {
		return fmt.Errorf("one of -pin or -photo is required")
	}

	c, err := loadContext(*initPath)
	if err != nil {
		return err
	}
	containerBytes, err := os.ReadFile(*cardPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", *cardPath, err)
	}

	var buf *card.Buffer
	if *pin != "" {
		buf, err = c.VerifyWithPIN(containerBytes, *pin)
	} else {
		photo, readErr := os.ReadFile(*photoPath)
		if readErr != nil {
			return fmt.Errorf("read photo: %w", readErr)
		}
		buf, err = c.VerifyWithFace(containerBytes, photo)
	}
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	defer c.Free(buf)

	details, err := record.DecodeCardDetails(buf.Bytes())
	if err != nil {
		return fmt.Errorf("decode verified details: %w", err)
	}
	log.Printf("verified: surname=%q given=%q full=%q uin=%q", details.Surname, details.GivenName, details.FullName, details.UIN)
	return nil
}

func loadContext(initPath string) (*card.Context, error) {
	b, err := os.ReadFile(initPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", initPath, err)
	}
	c, err := card.NewContext(card.Config{Init: b})
	if err != nil {
		return nil, fmt.Errorf("new context: %w", err)
	}
	return c, nil
}
