package main

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/spf13/cobra"

	"sift/internal/fingerprint"
)

func newHashCommand() *cobra.Command {
	hashCmd := &cobra.Command{
		Use:   "hash",
		Short: "Compute perceptual fingerprints",
	}

	hashCmd.AddCommand(newHashImageCommand())
	hashCmd.AddCommand(newHashCompareCommand())

	return hashCmd
}

func newHashImageCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "image <path>",
		Short: "Print the perceptual hash of an image file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := decodeImage(args[0])
			if err != nil {
				return err
			}
			cmd.Println(fingerprint.HashImage(img))
			return nil
		},
	}
}

func newHashCompareCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "compare <path> <path>",
		Short: "Compare two images by perceptual hash similarity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			first, err := decodeImage(args[0])
			if err != nil {
				return err
			}
			second, err := decodeImage(args[1])
			if err != nil {
				return err
			}

			a := fingerprint.HashImage(first)
			b := fingerprint.HashImage(second)
			similarity, err := fingerprint.CompareSimilarity(a, b)
			if err != nil {
				return err
			}
			cmd.Printf("%s  %s\n", a, args[0])
			cmd.Printf("%s  %s\n", b, args[1])
			cmd.Printf("similarity: %.3f\n", similarity)
			return nil
		},
	}
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}
