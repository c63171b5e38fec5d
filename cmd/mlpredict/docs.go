package main

// General API documentation for swaggo. Run `swag init -g cmd/mlpredict/docs.go` to generate docs.
//
// @title           mlpredict API
// @version         1.0
// @description     HTTP API for batch predictions from trained model bundles.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
