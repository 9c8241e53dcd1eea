package models

// TAFeatures lists every indicator field the backend attaches to a candle,
// in wire order. A pattern window is only submittable when each of these is
// a finite number on every candle in the window.
var TAFeatures = []string{
	"open", "high", "low", "close", "volume", "volume_adi", "volume_obv", "volume_cmf", "volume_fi",
	"volume_em", "volume_sma_em", "volume_vpt", "volume_vwap", "volume_mfi", "volume_nvi",
	"volatility_bbm", "volatility_bbh", "volatility_bbl", "volatility_bbw", "volatility_bbp",
	"volatility_bbhi", "volatility_bbli", "volatility_kcc", "volatility_kch", "volatility_kcl",
	"volatility_kcw", "volatility_kcp", "volatility_kchi", "volatility_kcli", "volatility_dcl",
	"volatility_dch", "volatility_dcm", "volatility_dcw", "volatility_dcp", "volatility_atr",
	"volatility_ui", "trend_macd", "trend_macd_signal", "trend_macd_diff", "trend_sma_fast",
	"trend_sma_slow", "trend_ema_fast", "trend_ema_slow", "trend_vortex_ind_pos",
	"trend_vortex_ind_neg", "trend_vortex_ind_diff", "trend_trix", "trend_mass_index",
	"trend_dpo", "trend_kst", "trend_kst_sig", "trend_kst_diff", "trend_ichimoku_conv",
	"trend_ichimoku_base", "trend_ichimoku_a", "trend_ichimoku_b", "trend_stc", "trend_adx",
	"trend_adx_pos", "trend_adx_neg", "trend_cci", "trend_visual_ichimoku_a",
	"trend_visual_ichimoku_b", "trend_aroon_up", "trend_aroon_down", "trend_aroon_ind",
	"trend_psar_up", "trend_psar_down", "trend_psar_up_indicator", "trend_psar_down_indicator",
	"momentum_rsi", "momentum_stoch_rsi", "momentum_stoch_rsi_k", "momentum_stoch_rsi_d",
	"momentum_tsi", "momentum_uo", "momentum_stoch", "momentum_stoch_signal", "momentum_wr",
	"momentum_ao", "momentum_roc", "momentum_ppo", "momentum_ppo_signal", "momentum_ppo_hist",
	"momentum_pvo", "momentum_pvo_signal", "momentum_pvo_hist", "momentum_kama", "others_dr",
	"others_dlr", "others_cr", "momentum_ppo_sm", "momentum_ppo_deg", "classified", "classification",
}

// structFeatures are feature names stored as first-class Candle fields
// rather than in the Features map.
var structFeatures = map[string]bool{
	"open": true, "high": true, "low": true, "close": true, "volume": true,
	"classified": true, "classification": true, "momentum_ppo_sm": true,
}

// IsStructFeature reports whether name maps onto a dedicated Candle field.
func IsStructFeature(name string) bool { return structFeatures[name] }
