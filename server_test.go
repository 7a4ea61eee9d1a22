/*
 * Copyright 2022 RapidLoop, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package rstsql

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapidloop/rstsql/internal/dsl"
)

func TestValidatePort(t *testing.T) {
	assert.NoError(t, ValidatePort(8080))
	assert.Error(t, ValidatePort(0))
	assert.Error(t, ValidatePort(70000))
}

func TestValidateBind(t *testing.T) {
	assert.NoError(t, ValidateBind("127.0.0.1"))
	assert.NoError(t, ValidateBind("::1"))
	assert.Error(t, ValidateBind("not-an-ip"))
}

// S3 — a GET request without the parameter leaves it out of the gathered
// values, so codec.Bind later reports it as missing before any query runs.
func TestGatherValuesGETMissingParam(t *testing.T) {
	ep := dsl.Endpoint{Method: "GET", ParamOrder: []string{"id"}}
	req := httptest.NewRequest("GET", "/demo/users/byId", nil)
	values, err := gatherValues(req, ep)
	require.NoError(t, err)
	assert.NotContains(t, values, "id")
}

func TestGatherValuesGETPresent(t *testing.T) {
	ep := dsl.Endpoint{Method: "GET", ParamOrder: []string{"id"}}
	req := httptest.NewRequest("GET", "/demo/users/byId?id=7", nil)
	values, err := gatherValues(req, ep)
	require.NoError(t, err)
	assert.Equal(t, "7", values["id"])
}

func TestGatherValuesPOSTObjectBody(t *testing.T) {
	ep := dsl.Endpoint{Method: "POST", ParamOrder: []string{"name", "admin"}}
	body := strings.NewReader(`{"name":"Bo","admin":true}`)
	req := httptest.NewRequest("POST", "/demo/users/create", body)
	values, err := gatherValues(req, ep)
	require.NoError(t, err)
	assert.Equal(t, "Bo", values["name"])
	assert.Equal(t, true, values["admin"])
}

func TestGatherValuesPOSTEmptyBodyNoParams(t *testing.T) {
	ep := dsl.Endpoint{Method: "POST", ParamOrder: nil}
	req := httptest.NewRequest("POST", "/demo/ping", nil)
	values, err := gatherValues(req, ep)
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestGatherValuesPOSTNonObjectBodyWithParamsFails(t *testing.T) {
	ep := dsl.Endpoint{Method: "POST", ParamOrder: []string{"name"}}
	body := strings.NewReader(`[1,2,3]`)
	req := httptest.NewRequest("POST", "/demo/users/create", body)
	_, err := gatherValues(req, ep)
	assert.Error(t, err)
}

func TestGatherValuesPOSTInvalidJSONFails(t *testing.T) {
	ep := dsl.Endpoint{Method: "POST", ParamOrder: []string{"name"}}
	body := strings.NewReader(`not json`)
	req := httptest.NewRequest("POST", "/demo/users/create", body)
	_, err := gatherValues(req, ep)
	assert.Error(t, err)
}
