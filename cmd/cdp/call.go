package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cloudera/cdpcore/pkg/auth"
	"github.com/cloudera/cdpcore/pkg/client"
	"github.com/cloudera/cdpcore/pkg/config"
	"github.com/cloudera/cdpcore/pkg/endpoint"
	"github.com/cloudera/cdpcore/pkg/model"
	"github.com/cloudera/cdpcore/pkg/paginate"
	"github.com/cloudera/cdpcore/pkg/transport"
)

var (
	flagInput          string
	flagRegion         string
	flagEndpointURL    string
	flagCDPEndpointURL string
	flagAccessKeyID    string
	flagPrivateKey     string
	flagMaxAttempts    int
	flagTimeout        time.Duration
	flagPaginate       bool
	flagMaxItems       int
	flagPageSize       int
	flagStartingToken  string
	flagVerbose        bool
)

func init() {
	callCmd.Flags().StringVar(&flagInput, "input", "{}", "Operation arguments as JSON, or @file")
	callCmd.Flags().StringVar(&flagRegion, "region", "", "Control-plane region")
	callCmd.Flags().StringVar(&flagEndpointURL, "endpoint-url", "", "Explicit endpoint URL override (may contain one %s)")
	callCmd.Flags().StringVar(&flagCDPEndpointURL, "cdp-endpoint-url", "", "Configured CDP endpoint URL (may contain one %s)")
	callCmd.Flags().StringVar(&flagAccessKeyID, "access-key-id", os.Getenv("CDP_ACCESS_KEY_ID"), "Access key id")
	callCmd.Flags().StringVar(&flagPrivateKey, "private-key", "", "Private key material, @file, or CDP_PRIVATE_KEY")
	callCmd.Flags().IntVar(&flagMaxAttempts, "max-attempts", 0, "Retry attempt limit")
	callCmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "HTTP timeout")
	callCmd.Flags().BoolVar(&flagPaginate, "paginate", false, "Drain all pages of a pageable operation")
	callCmd.Flags().IntVar(&flagMaxItems, "max-items", 0, "Item cap for --paginate")
	callCmd.Flags().IntVar(&flagPageSize, "page-size", 0, "Requested page size for --paginate")
	callCmd.Flags().StringVar(&flagStartingToken, "starting-token", "", "Continuation token to resume from")
	callCmd.Flags().BoolVar(&flagVerbose, "verbose", false, "Log requests and retries")

	rootCmd.AddCommand(callCmd)
}

var callCmd = &cobra.Command{
	Use:   "call [service-document] [operation]",
	Short: "Invoke one operation of a service",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		docData, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read service document: %w", err)
		}
		svc, err := model.Load(docData)
		if err != nil {
			return err
		}
		op, err := svc.Operation(args[1])
		if err != nil {
			return err
		}

		inputTree, err := loadInput(flagInput)
		if err != nil {
			return err
		}

		keyMaterial, err := loadPrivateKey(flagPrivateKey)
		if err != nil {
			return err
		}
		keypair, err := auth.Credentials{
			AccessKeyID: flagAccessKeyID,
			PrivateKey:  keyMaterial,
		}.Freeze()
		if err != nil {
			return err
		}

		logger := zap.NewNop()
		if flagVerbose {
			if logger, err = zap.NewDevelopment(); err != nil {
				return err
			}
		}

		cfg := &config.Config{
			Region:         flagRegion,
			CDPEndpointURL: flagCDPEndpointURL,
			MaxAttempts:    flagMaxAttempts,
			HTTPTimeout:    flagTimeout,
		}
		baseURL := endpoint.Resolve(endpoint.Options{
			ServiceName:    svc.EndpointName,
			EndpointPrefix: svc.EndpointPrefix,
			Products:       svc.Products,
			ExplicitURL:    flagEndpointURL,
			Region:         flagRegion,
		}, cfg)

		ep := transport.New(baseURL, svc.EndpointName, cfg, logger)
		c := client.New(svc, ep, auth.NewSigner(keypair), logger)

		ctx := context.Background()
		var out any
		if flagPaginate {
			pager, err := c.Paginate(op.Name, inputTree, paginate.Options{
				MaxItems:      flagMaxItems,
				PageSize:      flagPageSize,
				StartingToken: flagStartingToken,
			})
			if err != nil {
				return err
			}
			if out, err = pager.BuildFullResult(ctx); err != nil {
				return err
			}
		} else {
			if out, err = c.Invoke(ctx, op, inputTree); err != nil {
				return err
			}
		}

		rendered, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to render response: %w", err)
		}
		fmt.Println(string(rendered))
		return nil
	},
}

// loadInput parses the --input flag: inline JSON or @file.
func loadInput(input string) (map[string]any, error) {
	data := []byte(input)
	if strings.HasPrefix(input, "@") {
		var err error
		if data, err = os.ReadFile(input[1:]); err != nil {
			return nil, fmt.Errorf("failed to read input file: %w", err)
		}
	}
	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("input is not a JSON object: %w", err)
	}
	return tree, nil
}

// loadPrivateKey resolves the --private-key flag: literal material, @file,
// or the CDP_PRIVATE_KEY environment variable.
func loadPrivateKey(flag string) (string, error) {
	if flag == "" {
		return os.Getenv("CDP_PRIVATE_KEY"), nil
	}
	if strings.HasPrefix(flag, "@") {
		data, err := os.ReadFile(flag[1:])
		if err != nil {
			return "", fmt.Errorf("failed to read private key file: %w", err)
		}
		return string(data), nil
	}
	return flag, nil
}
