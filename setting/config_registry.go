package setting

import (
	"bytes"
	"encoding/json"

	"github.com/zintix-labs/slot666/errs"
	"gopkg.in/yaml.v3"
)

// GetGameSettingByYAML
// 會讀取 YAML 設定、初始化各子設定並執行基本檢查後回傳。
func GetGameSettingByYAML(data []byte) (*GameSetting, error) {
	gs := &GameSetting{}
	if err := decodeYAML(data, gs); err != nil {
		return nil, errs.Wrap(err, "failed to unmarshall yaml")
	}
	if err := gs.init(); err != nil {
		return nil, errs.Wrap(err, "game setting initialized err")
	}
	return gs, nil
}

// GetGameSettingByJSON
// 會讀取 Json 設定、初始化各子設定並執行基本檢查後回傳
func GetGameSettingByJSON(data []byte) (*GameSetting, error) {
	gs := &GameSetting{}
	if err := decodeJSON(data, gs); err != nil {
		return nil, errs.Wrap(err, "can not unmarshall json byte")
	}
	if err := gs.init(); err != nil {
		return nil, errs.Wrap(err, "game setting initialized err")
	}
	return gs, nil
}

// GetItemsSettingByYAML 讀取道具目錄 YAML
func GetItemsSettingByYAML(data []byte) (*ItemsSetting, error) {
	is := &ItemsSetting{}
	if err := decodeYAML(data, is); err != nil {
		return nil, errs.Wrap(err, "failed to unmarshall items yaml")
	}
	if err := is.init(); err != nil {
		return nil, errs.Wrap(err, "items setting initialized err")
	}
	return is, nil
}

// GetItemsSettingByJSON 讀取道具目錄 JSON
func GetItemsSettingByJSON(data []byte) (*ItemsSetting, error) {
	is := &ItemsSetting{}
	if err := decodeJSON(data, is); err != nil {
		return nil, errs.Wrap(err, "can not unmarshall items json")
	}
	if err := is.init(); err != nil {
		return nil, errs.Wrap(err, "items setting initialized err")
	}
	return is, nil
}

// decodeYAML 嚴格檢查：多寫/拼錯欄位就報錯
func decodeYAML(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(out)
}

func decodeJSON(data []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}
