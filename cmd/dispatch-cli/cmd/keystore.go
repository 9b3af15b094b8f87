package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"dispatch-core/pkg/hdwallet"
	"dispatch-core/pkg/keystore"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	keystoreOutput string
	keystorePath   string
	keystoreWords  int
	keystoreLight  bool
)

var keystoreCmd = &cobra.Command{
	Use:   "keystore",
	Short: "管理本地钱包使用的加密助记词文件",
	// 不需要配置文件
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
}

var keystoreNewCmd = &cobra.Command{
	Use:   "new",
	Short: "生成新的助记词并加密保存",
	RunE: func(cmd *cobra.Command, args []string) error {
		bits := 128
		if keystoreWords == 24 {
			bits = 256
		} else if keystoreWords != 12 {
			return fmt.Errorf("--words 只能是 12 或 24")
		}
		mnemonic, err := hdwallet.NewMnemonic(bits)
		if err != nil {
			return err
		}
		if err := saveKeystore(cmd, mnemonic); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "请离线备份以下助记词, 任何拥有助记词的人都可以控制该钱包:")
		fmt.Fprintln(cmd.OutOrStdout(), mnemonic)
		return nil
	},
}

var keystoreImportCmd = &cobra.Command{
	Use:   "import",
	Short: "导入已有助记词并加密保存",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprint(cmd.ErrOrStderr(), "输入助记词: ")
		mnemonic, err := readSecret()
		if err != nil {
			return err
		}
		mnemonic = strings.Join(strings.Fields(mnemonic), " ")
		if !hdwallet.ValidateMnemonic(mnemonic) {
			return errors.New("助记词无效")
		}
		return saveKeystore(cmd, mnemonic)
	},
}

var keystoreAddressCmd = &cobra.Command{
	Use:   "address",
	Short: "解密 Keystore 并显示派生地址",
	RunE: func(cmd *cobra.Command, args []string) error {
		k, err := keystore.LoadFromFile(keystorePath)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.ErrOrStderr(), "输入密码: ")
		password, err := readSecret()
		if err != nil {
			return err
		}
		mnemonic, err := keystore.DecryptMnemonic(k, password)
		if err != nil {
			return err
		}
		addr, err := deriveAddress(mnemonic)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), addr)
		return nil
	},
}

func saveKeystore(cmd *cobra.Command, mnemonic string) error {
	if _, err := os.Stat(keystoreOutput); err == nil {
		return fmt.Errorf("文件 %s 已存在, 请先删除或指定其他文件名", keystoreOutput)
	}

	fmt.Fprint(cmd.ErrOrStderr(), "设置密码: ")
	password, err := readSecret()
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.ErrOrStderr(), "确认密码: ")
	confirm, err := readSecret()
	if err != nil {
		return err
	}
	if password != confirm {
		return errors.New("两次输入的密码不一致")
	}
	if len(password) < 8 {
		return errors.New("密码长度至少需要 8 位")
	}

	n := keystore.StandardScryptN
	if keystoreLight {
		n = keystore.LightScryptN
	}
	k, err := keystore.EncryptMnemonicWithN(mnemonic, password, n)
	if err != nil {
		return err
	}
	if k.Address, err = deriveAddress(mnemonic); err != nil {
		return err
	}
	if err := k.SaveToFile(keystoreOutput); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "已保存到 %s, 地址 %s\n", keystoreOutput, k.Address)
	return nil
}

func deriveAddress(mnemonic string) (string, error) {
	w, err := hdwallet.NewFromMnemonic(mnemonic, "")
	if err != nil {
		return "", err
	}
	_, addr, err := w.EthKey(hdwallet.DefaultEthPath)
	if err != nil {
		return "", err
	}
	return addr.Hex(), nil
}

// readSecret 终端下不回显, 管道输入时按行读取
func readSecret() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("读取输入失败: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := stdinReader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("读取输入失败: %w", err)
	}
	return strings.TrimSpace(line), nil
}

var stdinReader = bufio.NewReader(os.Stdin)

func init() {
	keystoreCmd.PersistentFlags().BoolVar(&keystoreLight, "light", false, "使用较低的 scrypt 强度 (仅限开发)")
	keystoreNewCmd.Flags().StringVarP(&keystoreOutput, "output", "o", "wallet.json", "输出文件")
	keystoreNewCmd.Flags().IntVar(&keystoreWords, "words", 12, "助记词数量 12 或 24")
	keystoreImportCmd.Flags().StringVarP(&keystoreOutput, "output", "o", "wallet.json", "输出文件")
	keystoreAddressCmd.Flags().StringVarP(&keystorePath, "file", "f", "wallet.json", "Keystore 文件")

	keystoreCmd.AddCommand(keystoreNewCmd, keystoreImportCmd, keystoreAddressCmd)
	rootCmd.AddCommand(keystoreCmd)
}
