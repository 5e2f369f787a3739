// Package config loads the bridge settings.
//
// Sources, later ones winning:
//
//  1. built-in defaults
//  2. the YAML file, if a path is given
//  3. a .env file in the working directory
//  4. process environment
//
// The environment names of the hub add-on (FIMP_SERVER, FIMP_PORT,
// FIMP_USERNAME, FIMP_PASSWORD, CLIENT_ID, DEBUG, SELECTED_DEVICES_MODE,
// SELECTED_DEVICES) are honoured so an existing .env keeps working.
// Everything else uses the FIMP2HA_ prefix. Keep broker credentials in the
// environment rather than the YAML file.
//
//	cfg, err := config.Load(path)
//	if err != nil {
//	    return err
//	}
package config
