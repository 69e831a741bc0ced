package cmd

import (
	"github.com/spf13/viper"

	"github.com/coaxwatch/coaxwatch/internal/config"
	"github.com/coaxwatch/coaxwatch/pkg/auth"
	"github.com/coaxwatch/coaxwatch/pkg/orchestrator"
)

// modemConfig assembles the typed per-modem configuration for one host from
// flags and environment.
func modemConfig(host string) config.ModemConfig {
	return config.ModemConfig{
		Host:      host,
		Username:  viper.GetString("modem.username"),
		Password:  viper.GetString("modem.password"),
		Parser:    viper.GetString("modem.parser"),
		AuthKind:  viper.GetString("modem.auth_kind"),
		VerifySSL: viper.GetBool("modem.verify_ssl"),
		LegacySSL: viper.GetBool("modem.legacy_ssl"),
		Timeout:   viper.GetDuration("poll.timeout"),
		Form: config.FormConfig{
			Action:           viper.GetString("modem.form.action"),
			Method:           viper.GetString("modem.form.method"),
			UsernameField:    viper.GetString("modem.form.username_field"),
			PasswordField:    viper.GetString("modem.form.password_field"),
			SuccessRedirect:  viper.GetString("modem.form.success_redirect"),
			MinResponseBytes: viper.GetInt("modem.form.min_response_bytes"),
			DynamicSelector:  viper.GetString("modem.form.dynamic_selector"),
		},
		HNAP: config.HNAPConfig{
			Endpoint:  viper.GetString("modem.hnap.endpoint"),
			Namespace: viper.GetString("modem.hnap.namespace"),
			Algorithm: viper.GetString("modem.hnap.algorithm"),
		},
		URLToken: config.URLTokenConfig{
			LoginPath:   viper.GetString("modem.url_token.login_path"),
			TokenParam:  viper.GetString("modem.url_token.token_param"),
			CookieName:  viper.GetString("modem.url_token.cookie_name"),
			SendAuthHdr: viper.GetBool("modem.url_token.send_auth_header"),
			SendAjaxHdr: viper.GetBool("modem.url_token.send_ajax_header"),
		},
	}
}

// modemOptions maps a validated modem configuration onto orchestrator
// options.
func modemOptions(m config.ModemConfig) orchestrator.Options {
	return orchestrator.Options{
		Host: m.Host,
		Credentials: auth.Credentials{
			Username: m.Username,
			Password: m.Password,
		},
		ParserName:  m.Parser,
		Strategy:    pinnedStrategy(m),
		VerifySSL:   m.VerifySSL,
		LegacySSL:   m.LegacySSL,
		Timeout:     m.Timeout,
		Diagnostics: cfg.Poll.Diagnostics,
	}
}

// pinnedStrategy builds the auth descriptor when the operator pinned a kind,
// nil when discovery decides.
func pinnedStrategy(m config.ModemConfig) *auth.StrategyDescriptor {
	if m.AuthKind == "" {
		return nil
	}
	desc := &auth.StrategyDescriptor{Kind: auth.StrategyKind(m.AuthKind)}
	switch desc.Kind {
	case auth.StrategyFormPlain, auth.StrategyFormBase64, auth.StrategyFormAjax,
		auth.StrategyFormDynamic, auth.StrategyRedirectForm:
		desc.Form = &auth.FormSpec{
			Action:           m.Form.Action,
			Method:           m.Form.Method,
			UsernameField:    m.Form.UsernameField,
			PasswordField:    m.Form.PasswordField,
			SuccessRedirect:  m.Form.SuccessRedirect,
			MinResponseBytes: m.Form.MinResponseBytes,
			DynamicSelector:  m.Form.DynamicSelector,
		}
	case auth.StrategyHNAP:
		desc.HNAP = &auth.HNAPSpec{
			Endpoint:  m.HNAP.Endpoint,
			Namespace: m.HNAP.Namespace,
			Algorithm: m.HNAP.Algorithm,
		}
	case auth.StrategyURLToken:
		desc.URLToken = &auth.URLTokenSpec{
			LoginPath:      m.URLToken.LoginPath,
			TokenParam:     m.URLToken.TokenParam,
			CookieName:     m.URLToken.CookieName,
			SendAuthHeader: m.URLToken.SendAuthHdr,
			SendAjaxHeader: m.URLToken.SendAjaxHdr,
		}
	}
	return desc
}
