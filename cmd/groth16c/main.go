// Command groth16c compiles a Groth16 verifying key into a Bitcoin
// Script locking script.
package main

//----------------------------------------------------------------------
// This file is part of Gospel.
// Copyright (C) 2011-2020 Bernd Fix
//
// Gospel is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License,
// or (at your option) any later version.
//
// SPDX-License-Identifier: AGPL3.0-or-later
//----------------------------------------------------------------------

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/urfave/cli"
	"go.uber.org/zap"

	"github.com/zkbtc/groth16script/curveparams"
	"github.com/zkbtc/groth16script/groth16"
	"github.com/zkbtc/groth16script/pairing"
)

var log *zap.Logger

func main() {
	var err error
	log, err = zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	app := cli.NewApp()
	app.Name = "groth16c"
	app.Usage = "compile a Groth16 verifying key into a Bitcoin Script locking script"
	app.Commands = []cli.Command{
		compileCommand(),
	}

	if err := app.Run(os.Args); err != nil {
		log.Error("groth16c failed", zap.Error(err))
		os.Exit(1)
	}
}

func compileCommand() cli.Command {
	return cli.Command{
		Name:   "compile",
		Usage:  "compile a verifying key into a locking script",
		Action: runCompile,
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "vk, k",
				Usage: "path to the verifying key JSON file",
			},
			cli.StringFlag{
				Name:  "out, o",
				Usage: "output file for the compiled script (hex-encoded); defaults to stdout",
			},
			cli.IntFlag{
				Name:  "modulus-pos, m",
				Usage: "stack depth of the field modulus the unlocking script parks at the bottom",
				Value: 0,
			},
		},
	}
}

func runCompile(ctx *cli.Context) error {
	vkPath := ctx.String("vk")
	if vkPath == "" {
		return cli.NewExitError("groth16c: --vk is required", 1)
	}

	raw, err := os.ReadFile(vkPath)
	if err != nil {
		return cli.NewExitError(fmt.Errorf("groth16c: reading %s: %w", vkPath, err), 1)
	}

	vk, maxMultipliers, curveName, err := parseVerifyingKey(raw)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if curveName == "" {
		curveName = "bls12381"
	}

	log.Info("compiling verifying key",
		zap.String("curve", curveName),
		zap.Int("public_inputs", len(vk.GammaABC)-1),
	)

	params, err := curveParamsByName(curveName)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	pair, err := pairing.NewFromParams(params)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	verifier, err := groth16.NewVerifier(pair, vk, maxMultipliers)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	locking := verifier.LockingScript(ctx.Int("modulus-pos"))
	out := hex.EncodeToString(locking.Bytes())

	outPath := ctx.String("out")
	if outPath == "" {
		fmt.Println(out)
		return nil
	}
	if err := os.WriteFile(outPath, []byte(out+"\n"), 0o644); err != nil {
		return cli.NewExitError(fmt.Errorf("groth16c: writing %s: %w", outPath, err), 1)
	}
	log.Info("wrote locking script", zap.String("path", outPath), zap.Int("bytes", len(locking.Bytes())))
	return nil
}

func curveParamsByName(name string) (*curveparams.CurveParams, error) {
	switch name {
	case "bls12381":
		return curveparams.BLS12381(), nil
	case "toy19":
		return curveparams.Toy19(), nil
	default:
		return nil, fmt.Errorf("groth16c: unknown curve %q", name)
	}
}
