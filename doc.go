/*
Command psrtime times radio pulsars against a timing model with the BTX
binary model.

Contents

Version 0.1

  Program overview
  Command line usage
  Configuration
  File formats
  Algorithm outline


Program overview

Input is a par file, describing a timing model, and a tim file of pulse
times of arrival (TOAs).  Output is timing residuals, the difference between
observed TOAs and the TOAs the model predicts, or an improved model fit to
the TOAs.

Sample run:

  psrtime simulate --start 54990 --end 55050 --n 60 --site gbt -o j1012.tim j1012.par
  psrtime resids j1012.par j1012.tim

gives

  PSR J1012+5307  60 TOAs  54990.000 to 55050.000  track pulse numbers
  weighted RMS 0.000 µs  mean 0.000 µs
  chi2 2.1e-08  DOF 59  reduced 3.6e-10

The first command writes TOAs that the model predicts exactly, each tagged
with its pulse number.  The second reads them back and finds nothing left
over.


Command line usage

  psrtime [-c config] [--verbose] <command> [flags] <args>

Commands are

  check <par file>...        load and summarize par files
  resids <par file> <tim>    compute residuals, -l lists each TOA
  fit <par file> <tim>       fit free parameters, -o writes the result
  simulate <par file>        write TOAs the model predicts
  zero <par file> <tim>      move TZRMJD so the mean residual is zero
  runs <psr>                 list archived fits

Type psrtime help <command> for the flags of a command.

Check loads the files concurrently.  Results print in command line order.
A file that fails prints an error line and the command exits non-zero
after the rest are summarized.

Fit iterates weighted linear least squares steps until chi-square changes
by less than the configured threshold.  Free parameters are those marked
with fit flag 1 in the par file.  Fitted uncertainties are written to the
par file.


Configuration

Configuration is a YAML file.  The -c option names it, otherwise the
environment variable PSRTIME_CONFIG, otherwise psrtime.yaml in the current
directory.  The default file is optional.  A .env file in the current
directory is loaded into the environment first and ${VAR} references in the
configuration are expanded.

  log:
    level: info            # debug, info, warn, error
    format: text           # or json
  obscodes:
    file: obscode.dat      # MPC observatory codes
    fetch: true            # download from the MPC if missing
  floors:                  # minimum TOA uncertainty, µs
    default: 0
    sites:
      gbt: 0.5
  fit:
    max_iter: 10
    threshold: 0.001
  simulate:
    seed: 3
    repeatable: false
    error_us: 1
    freq: 1400
    site: "@"
  archive:
    path: runs.db          # empty disables the fit archive


File formats

Par files hold one parameter per line,

  NAME value [fit flag] [uncertainty]

RAJ and DECJ are sexagesimal.  Epochs such as PEPOCH, T0 and TZRMJD are
MJD day numbers with up to 15 decimal places.  BINARY BTX selects the BTX
model.  Its orbital frequency FB, in Hz, and derivatives FB1, FB2, and so on
replace the period PB of other binary models.  Unrecognized parameters are
kept and written back out.

Tim files are tempo2 format,

  name freq mjd error site [-flag value]...

with frequency in MHz and error in µs.  Sites are MPC observatory codes or
one of the common tempo2 names, gbt, ao, and so on.  @ is the solar system
barycenter.  The -pn flag gives a pulse number.  When every TOA has one,
residuals are tracked by pulse number rather than to the nearest pulse.


Algorithm outline

1.  For each TOA, delays accumulate through the model components in order:
astrometric, dispersive, binary.  Each component sees the TOA less the
delays of those before it.

2.  The spindown component evaluates pulse phase at the delayed time as a
Taylor series in F0, F1, and so on from PEPOCH.

3.  With TZRMJD, phase is absolute: the phase of a reference TOA is
subtracted so that phase zero falls at TZRMJD.

4.  Residuals are the fractional phase, or phase less pulse number, divided
by spin frequency.  The weighted mean is subtracted unless --keep-mean is
given.

5.  The fitter forms a design matrix of phase derivatives, weights rows by
TOA uncertainty, and solves by QR decomposition.  Parameter covariance is
the inverse of the normal matrix.

-------------
Public domain.
*/
package main
