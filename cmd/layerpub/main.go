package main

// layerpub builds a Lambda layer archive from a dependency directory and,
// optionally, publishes it as a new layer version. Without -publish the
// archive is written (or described) and nothing touches AWS, so the
// command can run in build pipelines as a dry run.
//
// Typical use:
//
//	layerpub -src ./build/python -prefix python -name lexful-deps \
//	    -runtimes python3.12,python3.13 -architectures x86_64,arm64 \
//	    -out lexful-deps.zip -publish

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awslambda "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/joho/godotenv"

	"github.com/lexful/lexful/layer"
)

func main() {
	_ = godotenv.Load()

	var (
		src       = flag.String("src", "", "directory holding the dependency tree to bundle")
		out       = flag.String("out", "", "write the archive to this file (optional)")
		name      = flag.String("name", "", "layer name")
		desc      = flag.String("description", "", "layer description")
		license   = flag.String("license", "", "license identifier published with the layer")
		runtimes  = flag.String("runtimes", "", "comma separated compatible runtimes, e.g. python3.12,python3.13")
		arches    = flag.String("architectures", "", "comma separated compatible architectures, e.g. x86_64,arm64")
		prefix    = flag.String("prefix", "", "directory prefix inside the archive, e.g. python")
		exclude   = flag.String("exclude", "", "comma separated glob patterns replacing the default excludes")
		doPublish = flag.Bool("publish", false, "publish the archive as a new layer version")
	)
	flag.Parse()

	if *src == "" || *name == "" {
		flag.Usage()
		os.Exit(2)
	}

	spec := layer.Spec{
		Name:                    *name,
		Description:             *desc,
		LicenseInfo:             *license,
		ContentPrefix:           *prefix,
		CompatibleRuntimes:      splitList(*runtimes),
		CompatibleArchitectures: splitList(*arches),
	}
	if *exclude != "" {
		spec.Exclude = splitList(*exclude)
	}

	var buf bytes.Buffer
	info, err := layer.Build(spec, *src, &buf)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	fmt.Printf("built %s: %d files, %d bytes zipped, sha256 %s\n", *name, info.Files, info.ArchiveBytes, info.SHA256)

	if *out != "" {
		if err := os.WriteFile(*out, buf.Bytes(), 0o644); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		fmt.Printf("wrote %s\n", *out)
	}

	if !*doPublish {
		fmt.Printf("dry run: would publish %s (runtimes: %s, architectures: %s)\n",
			*name, orNone(*runtimes), orNone(*arches))
		return
	}

	ctx := context.Background()
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	publisher := &layer.Publisher{Client: awslambda.NewFromConfig(cfg)}
	v, err := publisher.Publish(ctx, spec, buf.Bytes())
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	fmt.Printf("published version %d: %s\n", v.Number, v.ARN)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
