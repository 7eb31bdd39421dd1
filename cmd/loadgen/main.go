package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/sandeepkv93/secure-credential-service/internal/tools/common"
	tool "github.com/sandeepkv93/secure-credential-service/internal/tools/loadgen"
)

func main() {
	if err := tool.NewRootCommand().Execute(); err != nil {
		var exitErr *common.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
