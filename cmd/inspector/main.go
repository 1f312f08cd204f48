package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/GoPolymarket/gasgate/internal/calldata"
	"github.com/GoPolymarket/gasgate/internal/did"
	"github.com/GoPolymarket/gasgate/internal/signer"
	"github.com/GoPolymarket/gasgate/internal/station"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "gasgate-inspector",
		Usage: "Inspect gas station selectors, typed payloads, calldata and signatures",
		Description: `Offline helpers for debugging sponsored transactions.

This tool can:
- Print the station method selectors and the deployment event topic
- Build the EIP-712 payload for an action and print its digest
- Decode station, addItem and addAttribute calldata
- Recover the signer of a payload`,
		Version: "1.0.0",
		Commands: []*cli.Command{
			{
				Name:   "selectors",
				Usage:  "Print station method selectors",
				Action: selectorsCommand,
			},
			{
				Name:   "typed-data",
				Usage:  "Build a typed payload and print it with its digest",
				Flags:  payloadFlags(),
				Action: typedDataCommand,
			},
			{
				Name:  "calldata",
				Usage: "Decode station or precompile calldata",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Usage:    "0x-prefixed calldata",
						Required: true,
					},
				},
				Action: calldataCommand,
			},
			{
				Name:  "recover",
				Usage: "Recover the address that signed a typed payload",
				Flags: append(payloadFlags(), &cli.StringFlag{
					Name:     "signature",
					Usage:    "0x-prefixed 65-byte signature",
					Required: true,
				}),
				Action: recoverCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func payloadFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "kind",
			Usage:    "Action kind, e.g. execute_machine_transaction or ExecuteMachineTransaction",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "contract",
			Usage:    "Verifying contract: the station for factory actions, the machine account otherwise",
			Required: true,
		},
		&cli.Int64Flag{
			Name:  "chain-id",
			Usage: "Chain ID",
			Value: 9990,
		},
		&cli.StringSliceFlag{
			Name:  "field",
			Usage: "Message field as name=value; array fields take comma-separated values",
		},
	}
}

func selectorsCommand(c *cli.Context) error {
	contract, err := station.NewContract(common.Address{})
	if err != nil {
		return err
	}
	for _, name := range []string{
		station.MethodDeployMachineSmartAccount,
		station.MethodTransferMachineStationBalance,
		station.MethodExecuteTransaction,
		station.MethodExecuteMachineTransaction,
		station.MethodExecuteMachineBatchTransactions,
		station.MethodExecuteMachineTransferBalance,
	} {
		m, _ := contract.Method(name)
		fmt.Printf("%s  %s\n", hexutil.Encode(m.ID), m.Sig)
	}
	fmt.Printf("%s  %s\n", hexutil.Encode(calldata.Selector(calldata.AddItemSignature)), calldata.AddItemSignature)
	fmt.Printf("%s  %s\n", hexutil.Encode(calldata.Selector(calldata.AddAttributeSignature)), calldata.AddAttributeSignature)
	fmt.Printf("\nevent %s  %s\n", contract.DeployedEventID().Hex(), station.DeployedEventSignature)
	return nil
}

func typedDataCommand(c *cli.Context) error {
	payload, err := buildPayload(c)
	if err != nil {
		return err
	}
	hash, err := payload.Hash()
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(payload.TypedData(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	fmt.Printf("\ndigest: %s\n", hexutil.Encode(hash))
	return nil
}

func recoverCommand(c *cli.Context) error {
	payload, err := buildPayload(c)
	if err != nil {
		return err
	}
	sig, err := hexutil.Decode(c.String("signature"))
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}
	addr, err := signer.RecoverSigner(payload, sig)
	if err != nil {
		return err
	}
	fmt.Println(addr.Hex())
	return nil
}

func calldataCommand(c *cli.Context) error {
	data, err := hexutil.Decode(c.String("data"))
	if err != nil {
		return fmt.Errorf("decode calldata: %w", err)
	}
	if item, err := calldata.DecodeAddItem(data); err == nil {
		return printJSON(map[string]any{"call": "addItem", "args": item})
	}
	if attr, err := calldata.DecodeAddAttribute(data); err == nil {
		out := map[string]any{"call": "addAttribute", "args": attr}
		if doc, err := did.UnmarshalHex(attr.Value); err == nil {
			out["document"] = doc
		}
		return printJSON(out)
	}

	contract, err := station.NewContract(common.Address{})
	if err != nil {
		return err
	}
	name := contract.MethodName(data)
	m, ok := contract.Method(name)
	if !ok {
		return fmt.Errorf("unknown selector %s", hexutil.Encode(data[:min(4, len(data))]))
	}
	args := map[string]interface{}{}
	if err := m.Inputs.UnpackIntoMap(args, data[4:]); err != nil {
		return fmt.Errorf("unpack %s: %w", name, err)
	}
	for k, v := range args {
		if b, ok := v.([]byte); ok {
			args[k] = hexutil.Encode(b)
		}
	}
	return printJSON(map[string]any{"call": name, "args": args})
}

func buildPayload(c *cli.Context) (*signer.TypedPayload, error) {
	kind, err := signer.ParseActionKind(c.String("kind"))
	if err != nil {
		return nil, err
	}
	schema, err := signer.Schema(kind)
	if err != nil {
		return nil, err
	}
	types := make(map[string]string, len(schema))
	for _, f := range schema {
		types[f.Name] = f.Type
	}

	fields := signer.Fields{}
	for _, raw := range c.StringSlice("field") {
		name, value, found := strings.Cut(raw, "=")
		if !found {
			return nil, fmt.Errorf("field %q is not name=value", raw)
		}
		if strings.HasSuffix(types[name], "[]") {
			fields[name] = splitList(value)
			continue
		}
		fields[name] = value
	}
	return signer.BuildPayload(kind, c.String("contract"), c.Int64("chain-id"), fields)
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
