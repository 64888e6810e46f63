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

// Package mohoinv estimates the depth of the crust–mantle boundary (Moho)
// and an associated density-contrast field over a rectangular geographic
// region by inverting satellite gravity-gradient observations.
//
// The model approximates tesseroid (spherical prism) mass sources with
// equivalent point masses, builds a sensitivity matrix relating Moho-depth
// perturbations to the vertical gravity gradient, and solves a
// Tikhonov-regularized least-squares problem for the Moho-depth update.
// A search driver sweeps density-contrast assignments across tectonic
// units, rescaling the sensitivity matrix algebraically for each
// combination instead of re-running the forward model, and scores each
// candidate model against independent seismic control points.
package mohoinv
