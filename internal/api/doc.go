// Package api provides the WordPress management REST API.
package api
