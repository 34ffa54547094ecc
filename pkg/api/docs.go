// Package api provides the read-only REST API over GovIndexor ledgers
// @title GovIndexor API
// @version 1.0
// @description REST API for querying governance ledgers derived by GovIndexor
// @contact.name API Support
// @contact.url https://github.com/goran-ethernal/GovIndexor
// @license.name Apache 2.0
// @license.url https://www.apache.org/licenses/LICENSE-2.0.html
// @host localhost:8080
// @basePath /api/v1
// @schemes http https
package api
