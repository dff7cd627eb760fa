// Copyright (C) 2022-2026  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"os"

	"github.com/pkg/errors"

	"github.com/ubifs-rec/ubifs-rec/lib/diskio"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/reconstruct"
)

func openImage(path string) (*diskio.OSFile[int64], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open image %q", path)
	}
	return &diskio.OSFile[int64]{File: f}, nil
}

func runReconstruct(ctx context.Context, imagePath string, opts reconstruct.Options) (*reconstruct.Result, []reconstruct.RawRecord, error) {
	img, err := openImage(imagePath)
	if err != nil {
		return nil, nil, err
	}
	defer img.Close()
	return reconstruct.Run(ctx, img, opts)
}
