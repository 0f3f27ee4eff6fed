// Package main is the instructions Lambda. It builds roleplay instructions
// per case and uploads them in bundles.
//
// Routes (API Gateway HTTP API or function URL, payload v2):
//
//	GET  /api/health
//	GET  /api/instructions/generate?startFrom=&endAt=&limit=&dryRun=&overwrite=&debug=
package main

import (
	"context"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"

	"github.com/fpang/synthetic-patients/internal/httpapi"
	"github.com/fpang/synthetic-patients/internal/lambdaboot"
	"github.com/fpang/synthetic-patients/internal/logging"
)

const (
	functionName = "instructions-lambda"
	route        = "/api/instructions/generate"
)

var handler http.Handler

func init() {
	initStart := time.Now()
	logging.Init()

	rt, err := lambdaboot.Boot(context.Background(), functionName, initStart, lambdaboot.Version{
		CommitHash: commitHash,
		BuildTime:  buildTime,
	})
	if err != nil {
		log.Fatal().Err(err).Str("function", functionName).Msg("Cold start failed")
	}
	handler = httpapi.NewServer(rt.ServerOptions(functionName, route, rt.Pipelines.Instructions))
}

func main() {
	lambda.Start(httpadapter.NewV2(handler).ProxyWithContext)
}
