/*
Copyright © 2025 the MohoInv authors.
This file is part of MohoInv.

MohoInv is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

MohoInv is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with MohoInv.  If not, see <http://www.gnu.org/licenses/>.
*/

package mohoinv

import "fmt"

// ConfigError indicates an invalid run configuration, for example a
// non-positive reference density or an unsupported point-mass count.
// Configuration errors are unrecoverable and abort a run before the
// density search starts.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return "mohoinv: configuration: " + e.Msg }

func configErrorf(format string, args ...interface{}) error {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// AlignmentError indicates input data that does not line up with the
// model grid, for example an elevation grid that does not cover the
// padded modeling window or a tectonic-unit label outside the configured
// unit count. Alignment errors are unrecoverable.
type AlignmentError struct {
	Msg string
}

func (e *AlignmentError) Error() string { return "mohoinv: data alignment: " + e.Msg }

func alignmentErrorf(format string, args ...interface{}) error {
	return &AlignmentError{Msg: fmt.Sprintf(format, args...)}
}

// NumericalError indicates a singular or ill-conditioned system of
// normal equations. During a density search it is recoverable at the
// granularity of a single density combination: the combination is
// recorded as failed and the sweep continues.
type NumericalError struct {
	Msg string
}

func (e *NumericalError) Error() string { return "mohoinv: numerical: " + e.Msg }

func numericalErrorf(format string, args ...interface{}) error {
	return &NumericalError{Msg: fmt.Sprintf(format, args...)}
}
