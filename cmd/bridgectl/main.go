// Command bridgectl is the committee operator tool: key generation, message
// digests, and digest signing for offline approval workflows.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/chainsafe/bridge-core/pkg/keys"
	"github.com/chainsafe/bridge-core/pkg/message"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "keygen":
		err = runKeygen(os.Args[2:])
	case "digest":
		err = runDigest(os.Args[2:])
	case "sign":
		err = runSign(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: bridgectl <command> [flags]

Commands:
  keygen    generate a validator keypair (or derive one from a seed)
  digest    print the signing digest of an encoded message
  sign      sign a message digest with a validator key`)
}

func runKeygen(args []string) error {
	fs := flag.NewFlagSet("keygen", flag.ExitOnError)
	seedHex := fs.String("seed", "", "optional hex seed (>= 32 bytes) for deterministic derivation")
	label := fs.String("label", "validator", "derivation label, used with -seed")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var kp *keys.ValidatorKeyPair
	var err error
	if *seedHex != "" {
		seed, decodeErr := hex.DecodeString(strings.TrimPrefix(*seedHex, "0x"))
		if decodeErr != nil {
			return fmt.Errorf("invalid seed hex: %w", decodeErr)
		}
		kp, err = keys.Derive(seed, *label)
	} else {
		kp, err = keys.Generate()
	}
	if err != nil {
		return err
	}

	addr, err := kp.Address()
	if err != nil {
		return err
	}
	fmt.Printf("address:     %s\n", addr.Hex())
	fmt.Printf("public_key:  %s\n", kp.PublicKeyHex())
	fmt.Printf("private_key: %s\n", kp.PrivateKeyHex())
	return nil
}

func runDigest(args []string) error {
	fs := flag.NewFlagSet("digest", flag.ExitOnError)
	messageHex := fs.String("message", "", "hex-encoded message envelope")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *messageHex == "" {
		return fmt.Errorf("-message is required")
	}

	raw, err := hex.DecodeString(strings.TrimPrefix(*messageHex, "0x"))
	if err != nil {
		return fmt.Errorf("invalid message hex: %w", err)
	}
	m, err := message.Decode(raw)
	if err != nil {
		return err
	}
	fmt.Printf("type:    %s\n", m.Type)
	fmt.Printf("chain:   %s\n", m.SourceChain)
	fmt.Printf("seq_num: %d\n", m.SeqNum)
	fmt.Printf("digest:  %s\n", message.Digest(m).Hex())
	return nil
}

func runSign(args []string) error {
	fs := flag.NewFlagSet("sign", flag.ExitOnError)
	keyHex := fs.String("key", "", "validator private key, hex")
	messageHex := fs.String("message", "", "hex-encoded message envelope to digest and sign")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *keyHex == "" || *messageHex == "" {
		return fmt.Errorf("-key and -message are required")
	}

	kp, err := keys.FromPrivateKeyHex(*keyHex)
	if err != nil {
		return err
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(*messageHex, "0x"))
	if err != nil {
		return fmt.Errorf("invalid message hex: %w", err)
	}
	m, err := message.Decode(raw)
	if err != nil {
		return err
	}

	sig, err := kp.SignDigest(message.Digest(m).Bytes())
	if err != nil {
		return err
	}
	fmt.Printf("digest:    %s\n", message.Digest(m).Hex())
	fmt.Printf("signature: 0x%s\n", hex.EncodeToString(sig))
	return nil
}
