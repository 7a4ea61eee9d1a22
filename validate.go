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
	"fmt"
	"net"
)

// ValidatePort checks that port is in the 1-65534 range required by the
// --port flag.
func ValidatePort(port int) error {
	if port < 1 || port > 65534 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65534", port)
	}
	return nil
}

// ValidateBind checks that bind is a valid IPv4 or IPv6 literal.
func ValidateBind(bind string) error {
	if net.ParseIP(bind) == nil {
		return fmt.Errorf("invalid bind address %q: not an IPv4 or IPv6 literal", bind)
	}
	return nil
}
