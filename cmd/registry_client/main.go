package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/ruteri/certificate-registry/api"
	"github.com/ruteri/certificate-registry/api/clients"
	"github.com/ruteri/certificate-registry/cmd/flags"
	"github.com/ruteri/certificate-registry/interfaces"
	"github.com/urfave/cli/v2"
)

var (
	flagName       = &cli.StringFlag{Name: "name", Required: true, Usage: "certificate holder name"}
	flagRollNumber = &cli.StringFlag{Name: "roll-number", Required: true, Usage: "certificate holder roll number"}
	flagMarks      = &cli.Uint64Flag{Name: "marks", Required: true, Usage: "marks awarded"}
	flagAfter      = &cli.Uint64Flag{Name: "after", Value: 0, Usage: "return events with a sequence number above this one"}
)

// bulkFile is the JSON document accepted by issue-bulk.
type bulkFile = api.IssueCertificatesBulkRequest

func newClient(cCtx *cli.Context) (*clients.RegistryClient, error) {
	serverAddr, err := flags.ServerAddr(cCtx)
	if err != nil {
		return nil, err
	}
	key, err := flags.SigningKey(cCtx)
	if err != nil {
		return nil, err
	}

	flags.SetupLogger(cCtx).Debug("Using registry server", "addr", serverAddr)
	return clients.NewRegistryClient(serverAddr, key), nil
}

func firstArg(cCtx *cli.Context, what string) (string, error) {
	if cCtx.NArg() != 1 {
		return "", fmt.Errorf("expected exactly one argument: %s", what)
	}
	return cCtx.Args().First(), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// certificateCommand builds a read command taking a certificate id.
func certificateCommand(out io.Writer, name, usage string, run func(cCtx *cli.Context, c *clients.RegistryClient, id string) (any, error)) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<certificate-id>",
		Action: func(cCtx *cli.Context) error {
			id, err := firstArg(cCtx, "certificate id")
			if err != nil {
				return err
			}
			c, err := newClient(cCtx)
			if err != nil {
				return err
			}
			result, err := run(cCtx, c, id)
			if err != nil {
				return err
			}
			return printJSON(out, result)
		},
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:      "registry-client",
		Usage:     "Query and update a certificate registry server",
		Flags:     flags.ClientFlags,
		Writer:    out,
		ErrWriter: os.Stderr,
		Commands: []*cli.Command{
			{
				Name:  "owner",
				Usage: "print the registry owner",
				Action: func(cCtx *cli.Context) error {
					c, err := newClient(cCtx)
					if err != nil {
						return err
					}
					owner, err := c.Owner(cCtx.Context)
					if err != nil {
						return err
					}
					return printJSON(out, api.OwnerResponse{Owner: owner})
				},
			},
			{
				Name:      "authorize",
				Usage:     "authorize an issuer (owner key required)",
				ArgsUsage: "<address>",
				Action: func(cCtx *cli.Context) error {
					raw, err := firstArg(cCtx, "issuer address")
					if err != nil {
						return err
					}
					principal, err := interfaces.ParsePrincipal(raw)
					if err != nil {
						return err
					}
					c, err := newClient(cCtx)
					if err != nil {
						return err
					}
					if err := c.AuthorizeIssuer(cCtx.Context, principal); err != nil {
						return err
					}
					return printJSON(out, api.AuthorizationResponse{Principal: principal, Authorized: true})
				},
			},
			{
				Name:      "is-authorized",
				Usage:     "check whether an address may issue certificates",
				ArgsUsage: "<address>",
				Action: func(cCtx *cli.Context) error {
					raw, err := firstArg(cCtx, "issuer address")
					if err != nil {
						return err
					}
					principal, err := interfaces.ParsePrincipal(raw)
					if err != nil {
						return err
					}
					c, err := newClient(cCtx)
					if err != nil {
						return err
					}
					authorized, err := c.IsAuthorized(cCtx.Context, principal)
					if err != nil {
						return err
					}
					return printJSON(out, api.AuthorizationResponse{Principal: principal, Authorized: authorized})
				},
			},
			{
				Name:      "issue",
				Usage:     "issue a single certificate",
				ArgsUsage: "<certificate-id>",
				Flags:     []cli.Flag{flagName, flagRollNumber, flagMarks},
				Action: func(cCtx *cli.Context) error {
					id, err := firstArg(cCtx, "certificate id")
					if err != nil {
						return err
					}
					c, err := newClient(cCtx)
					if err != nil {
						return err
					}
					fingerprint, err := c.IssueCertificate(cCtx.Context, id, interfaces.CertificateSubject{
						Name:       cCtx.String(flagName.Name),
						RollNumber: cCtx.String(flagRollNumber.Name),
						Marks:      cCtx.Uint64(flagMarks.Name),
					})
					if err != nil {
						return err
					}
					return printJSON(out, api.IssueResponse{
						CertificateIDs: []string{id},
						Fingerprints:   []interfaces.ContentHash{fingerprint},
					})
				},
			},
			{
				Name:      "issue-bulk",
				Usage:     "issue a batch of certificates from a JSON file, all or nothing",
				ArgsUsage: "<file.json>",
				Description: `The file holds {"certificate_ids": [...], "certificates": [{"name", "roll_number", "marks"}, ...]}
   with ids and certificates matched by position. Use "-" to read standard input.`,
				Action: func(cCtx *cli.Context) error {
					path, err := firstArg(cCtx, "batch file")
					if err != nil {
						return err
					}
					batch, err := readBulkFile(path)
					if err != nil {
						return err
					}
					c, err := newClient(cCtx)
					if err != nil {
						return err
					}
					fingerprints, err := c.IssueCertificatesBulk(cCtx.Context, batch.CertificateIDs, batch.Certificates)
					if err != nil {
						return err
					}
					return printJSON(out, api.IssueResponse{CertificateIDs: batch.CertificateIDs, Fingerprints: fingerprints})
				},
			},
			certificateCommand(out, "exists", "check whether a certificate id is taken",
				func(cCtx *cli.Context, c *clients.RegistryClient, id string) (any, error) {
					exists, err := c.CertificateExists(cCtx.Context, id)
					return api.ExistsResponse{CertificateID: id, Exists: exists}, err
				}),
			certificateCommand(out, "hash", "print the fingerprint of a certificate",
				func(cCtx *cli.Context, c *clients.RegistryClient, id string) (any, error) {
					fingerprint, err := c.GetCertificateHash(cCtx.Context, id)
					return api.HashResponse{CertificateID: id, Fingerprint: fingerprint}, err
				}),
			certificateCommand(out, "verify", "verify a certificate",
				func(cCtx *cli.Context, c *clients.RegistryClient, id string) (any, error) {
					verification, err := c.VerifyCertificate(cCtx.Context, id)
					return api.VerifyResponse{CertificateID: id, Verification: verification}, err
				}),
			certificateCommand(out, "document", "fetch and check the archived document of a certificate",
				func(cCtx *cli.Context, c *clients.RegistryClient, id string) (any, error) {
					return c.GetDocument(cCtx.Context, id)
				}),
			{
				Name:  "events",
				Usage: "list registry notifications",
				Flags: []cli.Flag{flagAfter},
				Action: func(cCtx *cli.Context) error {
					c, err := newClient(cCtx)
					if err != nil {
						return err
					}
					page, err := c.EventsSince(cCtx.Context, cCtx.Uint64(flagAfter.Name))
					if err != nil {
						return err
					}
					return printJSON(out, page)
				},
			},
		},
	}
}

func readBulkFile(path string) (*bulkFile, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var batch bulkFile
	if err := json.NewDecoder(r).Decode(&batch); err != nil {
		return nil, fmt.Errorf("could not parse batch file: %w", err)
	}
	return &batch, nil
}

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
